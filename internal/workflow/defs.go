package workflow

import "github.com/corvid-labs/agentgw/internal/domain"

// TripPlanningWorkflow is the stock workflow shipped with the gateway. Its
// steps exercise both built-in agents.
func TripPlanningWorkflow() domain.WorkflowDef {
	return domain.WorkflowDef{
		WorkflowID:  "trip-planning",
		Name:        "Trip Planning",
		Description: "Research a destination, check the weather, and draft an itinerary",
		Steps: []domain.WorkflowStepDef{
			{
				StepID:      "research",
				Label:       "Research destination",
				Description: "Gather background on the destination",
				AgentID:     "researchAgent",
				Prompt:      "Research the destination the user asked about. Summarize the top attractions and practical travel notes.",
			},
			{
				StepID:      "weather",
				Label:       "Check weather",
				Description: "Look up current conditions at the destination",
				AgentID:     "weatherAgent",
				Prompt:      "Look up the current weather at the destination discussed so far and report it.",
			},
			{
				StepID:      "itinerary",
				Label:       "Draft itinerary",
				Description: "Combine the research into a day-by-day plan",
				AgentID:     "researchAgent",
				Prompt:      "Using the research and weather above, draft a day-by-day itinerary and save it.",
			},
		},
	}
}

// Defs is an in-memory registry of workflow definitions.
type Defs struct {
	order []string
	byID  map[string]domain.WorkflowDef
}

// NewDefs creates an empty definition registry.
func NewDefs() *Defs {
	return &Defs{byID: make(map[string]domain.WorkflowDef)}
}

// Register adds a definition. Later registrations with the same ID replace
// earlier ones.
func (d *Defs) Register(def domain.WorkflowDef) {
	if _, ok := d.byID[def.WorkflowID]; !ok {
		d.order = append(d.order, def.WorkflowID)
	}
	d.byID[def.WorkflowID] = def
}

// Get returns a definition by ID.
func (d *Defs) Get(workflowID string) (domain.WorkflowDef, bool) {
	def, ok := d.byID[workflowID]
	return def, ok
}

// List returns all definitions in registration order.
func (d *Defs) List() []domain.WorkflowDef {
	out := make([]domain.WorkflowDef, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// DefaultDefs returns the registry preloaded with the stock workflows.
func DefaultDefs() *Defs {
	d := NewDefs()
	d.Register(TripPlanningWorkflow())
	return d
}
