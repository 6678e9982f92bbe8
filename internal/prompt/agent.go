package prompt

// AgentTool is one tool as listed in the agent system prompt.
type AgentTool struct {
	Name        string
	Description string
	// Args is a one-line argument summary, e.g. `code (string, required)`.
	Args string
}

// AgentToolGroup lists the tools of one category.
type AgentToolGroup struct {
	Category string
	Tools    []AgentTool
}

// AgentSystemData fills the agent_system atom.
type AgentSystemData struct {
	OS        string
	Workspace string
	Groups    []AgentToolGroup
}

// AgentTaskData fills the agent_task atom.
type AgentTaskData struct {
	Task     string
	Snapshot string
	Memories []string
}

// AgentResultData fills the agent_result atom.
type AgentResultData struct {
	Tool   string
	Input  string
	Result string
	Failed bool

	Iteration     int
	MaxIterations int
}

// AgentStep is one tool call in the agent_final summary.
type AgentStep struct {
	Number int
	Tool   string
	Input  string
	Result string
}

// AgentFinalData fills the agent_final atom.
type AgentFinalData struct {
	Task          string
	Steps         []AgentStep
	MaxIterations int
}

func AgentSystem(d AgentSystemData) (string, error) { return render("agent_system", d) }
func AgentTask(d AgentTaskData) (string, error)     { return render("agent_task", d) }
func AgentResult(d AgentResultData) (string, error) { return render("agent_result", d) }
func AgentFinal(d AgentFinalData) (string, error)   { return render("agent_final", d) }
