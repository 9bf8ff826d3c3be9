package contracts

// IntentType is the closed set of command interpretations the parser
// can produce. Confirm and Deny are meta-intents resolved by the
// pipeline against a pending plan, never planned into actions.
type IntentType string

// Intent type constants.
const (
	IntentOpenApp    IntentType = "open_app"
	IntentOpenFile   IntentType = "open_file"
	IntentOpenURL    IntentType = "open_url"
	IntentWebSearch  IntentType = "web_search"
	IntentListDir    IntentType = "list_dir"
	IntentReadFile   IntentType = "read_file"
	IntentCreateFile IntentType = "create_file"
	IntentWriteFile  IntentType = "write_file"
	IntentDeleteFile IntentType = "delete_file"
	IntentSystemInfo IntentType = "system_info"
	IntentConfirm    IntentType = "confirm"
	IntentDeny       IntentType = "deny"
	IntentUnknown    IntentType = "unknown"
)

// Intent is the structured interpretation of one command. Produced
// once by the parser; immutable.
type Intent struct {
	Type       IntentType     `json:"type"`
	Slots      map[string]any `json:"slots"`
	Confidence float64        `json:"confidence"`
	Request    CommandRequest `json:"request"`
}

// Slot returns the named slot as a string, or fallback when absent
// or not a string.
func (i Intent) Slot(name, fallback string) string {
	v, ok := i.Slots[name]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// BoolSlot returns the named slot as a bool, or fallback.
func (i Intent) BoolSlot(name string, fallback bool) bool {
	v, ok := i.Slots[name]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// IsUnknown reports whether no pattern matched the command.
func (i Intent) IsUnknown() bool { return i.Type == IntentUnknown }

// UnknownIntent builds the zero-confidence result for unmatched input.
func UnknownIntent(req CommandRequest) Intent {
	return Intent{
		Type:       IntentUnknown,
		Slots:      map[string]any{},
		Confidence: 0.0,
		Request:    req,
	}
}
