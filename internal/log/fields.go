package log

// Field names shared across the log so one key always means one thing.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldUserName  = "user_name"
	FieldEntryID   = "entry_id"
	FieldTitle     = "title"
	FieldPrice     = "price"
	FieldCategory  = "category"
)

// Component names, one per subsystem.
const (
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
	ComponentSession = "session"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
)

// Operation names for ledger and account events.
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpRefresh  = "refresh"
)

// LogFields collects attributes before they are handed to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithUser(userID int64, userName string) LogFields {
	f[FieldUserID] = userID
	f[FieldUserName] = userName
	return f
}

func (f LogFields) WithEntry(entryID int64, title string, price int64, category string) LogFields {
	f[FieldEntryID] = entryID
	f[FieldTitle] = title
	f[FieldPrice] = price
	f[FieldCategory] = category
	return f
}

func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
