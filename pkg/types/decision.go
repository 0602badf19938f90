package types

// ActionType names one of the built-in browser actions the planner may pick.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionNavigate ActionType = "navigate"
	ActionScroll   ActionType = "scroll"
	ActionWait     ActionType = "wait"
	ActionComplete ActionType = "complete"
	ActionUnknown  ActionType = "unknown"
)

// ParseActionType maps a raw planner string to an ActionType. Anything outside
// the known set maps to ActionUnknown rather than failing the decision.
func ParseActionType(raw string) ActionType {
	switch ActionType(raw) {
	case ActionClick, ActionTypeText, ActionNavigate, ActionScroll, ActionWait, ActionComplete:
		return ActionType(raw)
	default:
		return ActionUnknown
	}
}

// Decision is the structured output parsed from one planner response. It is
// ephemeral: only its effects (memory entries, executed actions) persist.
type Decision struct {
	Thought  string     `json:"thought"`
	Action   ActionType `json:"action"`
	Target   string     `json:"target,omitempty"`
	Value    string     `json:"value,omitempty"`
	Tool     string     `json:"tool,omitempty"`
	Complete bool       `json:"complete"`
}
