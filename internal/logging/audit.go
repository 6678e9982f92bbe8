package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names a structured audit record.
type AuditEventType string

const (
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"
	AuditTurnStart    AuditEventType = "turn_start"
	AuditTurnEnd      AuditEventType = "turn_end"

	AuditAttempt    AuditEventType = "attempt"
	AuditTransition AuditEventType = "loop_transition"
	AuditSearch     AuditEventType = "search"

	AuditLLMRequest AuditEventType = "llm_request"
	AuditLLMError   AuditEventType = "llm_error"

	AuditExecution     AuditEventType = "execution"
	AuditProcessKilled AuditEventType = "process_killed"

	AuditMemoryStore  AuditEventType = "memory_store"
	AuditMemoryRecall AuditEventType = "memory_recall"

	AuditToolCall AuditEventType = "tool_call"
	AuditAgentRun AuditEventType = "agent_run"
)

// AuditEvent is one line of .jarvis/logs/audit.jsonl.
type AuditEvent struct {
	EventType  AuditEventType
	SessionID  string
	TurnID     string
	Target     string
	Success    bool
	DurationMs int64
	Error      string
	Message    string
	Fields     map[string]interface{}
}

// AuditLogger writes audit events with session correlation.
type AuditLogger struct {
	sessionID string
	z         *zap.Logger
}

var (
	auditMu   sync.RWMutex
	auditBase = zap.NewNop()
	auditFile *os.File
)

// InitAudit opens the audit trail under the logs directory. It is a no-op when
// debug mode is disabled.
func InitAudit() error {
	dir := LogsDir()
	if !IsDebugMode() || dir == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	f, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	auditFile = f

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	auditBase = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel))
	return nil
}

// UseAuditCore replaces the audit core. Intended for tests.
func UseAuditCore(core zapcore.Core) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditBase = zap.New(core)
}

// CloseAudit flushes and closes the audit trail.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	_ = auditBase.Sync()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
	auditBase = zap.NewNop()
}

// Audit returns an audit logger without session correlation.
func Audit() *AuditLogger {
	return AuditWithSession("")
}

// AuditWithSession returns an audit logger that stamps every event with sessionID.
func AuditWithSession(sessionID string) *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return &AuditLogger{sessionID: sessionID, z: auditBase}
}

// Log writes one event.
func (a *AuditLogger) Log(e AuditEvent) {
	if e.SessionID == "" {
		e.SessionID = a.sessionID
	}
	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.String("session", e.SessionID),
		zap.Bool("success", e.Success),
	}
	if e.TurnID != "" {
		fields = append(fields, zap.String("turn", e.TurnID))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.DurationMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Any("fields", e.Fields))
	}
	a.z.Info(e.Message, fields...)
}

func (a *AuditLogger) SessionStart(userID string) {
	a.Log(AuditEvent{EventType: AuditSessionStart, Success: true, Target: userID, Message: "session started"})
}

func (a *AuditLogger) SessionEnd(turns int, d time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditSessionEnd, Success: true, DurationMs: d.Milliseconds(),
		Message: fmt.Sprintf("session ended after %d turns", turns),
	})
}

func (a *AuditLogger) TurnStart(turnID string, inputLen int) {
	a.Log(AuditEvent{
		EventType: AuditTurnStart, TurnID: turnID, Success: true,
		Fields: map[string]interface{}{"input_len": inputLen},
	})
}

func (a *AuditLogger) TurnEnd(turnID, status string, attempts int, d time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditTurnEnd, TurnID: turnID, Target: status,
		Success:    status == "succeeded" || status == "no_action_needed",
		DurationMs: d.Milliseconds(),
		Fields:     map[string]interface{}{"attempts": attempts},
	})
}

// Attempt records one executed action and how it was classified.
func (a *AuditLogger) Attempt(turnID string, number int, kind, classification string, exitCode *int, timedOut bool, d time.Duration) {
	fields := map[string]interface{}{"number": number, "kind": kind, "timed_out": timedOut}
	if exitCode != nil {
		fields["exit_code"] = *exitCode
	}
	a.Log(AuditEvent{
		EventType: AuditAttempt, TurnID: turnID, Target: classification,
		Success: classification == "success", DurationMs: d.Milliseconds(), Fields: fields,
	})
}

func (a *AuditLogger) Transition(turnID, from, to string) {
	a.Log(AuditEvent{EventType: AuditTransition, TurnID: turnID, Success: true, Message: from + " -> " + to})
}

func (a *AuditLogger) Search(turnID, query string, sources int, err error) {
	e := AuditEvent{EventType: AuditSearch, TurnID: turnID, Target: query, Success: err == nil,
		Fields: map[string]interface{}{"sources": sources}}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

func (a *AuditLogger) LLMCall(model string, d time.Duration, err error) {
	e := AuditEvent{EventType: AuditLLMRequest, Target: model, Success: err == nil, DurationMs: d.Milliseconds()}
	if err != nil {
		e.EventType = AuditLLMError
		e.Error = err.Error()
	}
	a.Log(e)
}

func (a *AuditLogger) ProcessKilled(command, reason string) {
	a.Log(AuditEvent{EventType: AuditProcessKilled, Target: command, Message: reason})
}

func (a *AuditLogger) MemoryStore(kind string, err error) {
	e := AuditEvent{EventType: AuditMemoryStore, Target: kind, Success: err == nil}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

func (a *AuditLogger) MemoryRecall(query string, hits int) {
	a.Log(AuditEvent{EventType: AuditMemoryRecall, Target: query, Success: true,
		Fields: map[string]interface{}{"hits": hits}})
}

func (a *AuditLogger) ToolCall(tool string, d time.Duration, err error) {
	e := AuditEvent{EventType: AuditToolCall, Target: tool, Success: err == nil, DurationMs: d.Milliseconds()}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

func (a *AuditLogger) AgentRun(taskID string, iterations int, exhausted bool, d time.Duration, err error) {
	e := AuditEvent{
		EventType: AuditAgentRun, TurnID: taskID, Success: err == nil, DurationMs: d.Milliseconds(),
		Fields: map[string]interface{}{"iterations": iterations, "exhausted": exhausted},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}
