package agent

// Agent is a named role in the workflow.
type Agent struct {
	// Name is the display name used in logs, progress events and reports.
	Name string

	// Instructions describe what the agent does. They are used as the
	// system prompt when a language model is involved.
	Instructions string
}

// String returns the agent name.
func (a Agent) String() string {
	return a.Name
}

var (
	// Scraper fetches a page and extracts its visible text.
	Scraper = Agent{
		Name:         "Scraper Agent",
		Instructions: "You are an agent that scrapes content from websites.",
	}

	// Researcher turns page text into an analysis.
	Researcher = Agent{
		Name:         "Research Agent",
		Instructions: "You are an agent that analyzes content and extracts key insights.",
	}

	// Writer turns an analysis into the final report.
	Writer = Agent{
		Name:         "Writer Agent",
		Instructions: "You are an agent that writes summaries of research.",
	}
)

// All returns the agents in workflow order.
func All() []Agent {
	return []Agent{Scraper, Researcher, Writer}
}
