package auth

import (
	"encoding/json"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
)

const maxPasswordLength = 60

// Field is a JSON string property that remembers whether it was sent at all
// and whether it was actually a string. Absent and null are the same.
type Field struct {
	Value    string
	Present  bool
	IsString bool
}

// StringField returns a present string field.
func StringField(v string) Field {
	return Field{Value: v, Present: true, IsString: true}
}

func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field{}
		return nil
	}

	*f = Field{Present: true}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value = s
		f.IsString = true
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Present || !f.IsString {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f Field) empty() bool {
	return !f.Present || (f.IsString && f.Value == "")
}

// Credentials is the {email, password} body shared by login and the
// password change request.
type Credentials struct {
	Email    Field `json:"email"`
	Password Field `json:"password"`

	unknown []string
}

// NewCredentials builds a request as if both properties had been sent as strings.
func NewCredentials(email, password string) Credentials {
	return Credentials{Email: StringField(email), Password: StringField(password)}
}

func (c *Credentials) UnmarshalJSON(data []byte) error {
	*c = Credentials{}
	unknown, err := decodeObject(data, map[string]*Field{
		"email":    &c.Email,
		"password": &c.Password,
	})
	c.unknown = unknown
	return err
}

// Validate reports every violated rule at once. Messages are ordered by
// property, then by rule.
func (c Credentials) Validate() error {
	var messages []string
	messages = append(messages, emailViolations("email", c.Email)...)
	messages = append(messages, passwordViolations("password", c.Password)...)
	messages = append(messages, unknownViolations(c.unknown)...)

	if len(messages) > 0 {
		return apperrors.NewValidationError(messages...)
	}
	return nil
}

// NormalizedEmail returns the canonical form of the email property.
func (c Credentials) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(c.Email.Value))
}

// ConfirmRequest carries the confirmation token of a pending password change.
type ConfirmRequest struct {
	Token Field `json:"token"`

	unknown []string
}

func NewConfirmRequest(token string) ConfirmRequest {
	return ConfirmRequest{Token: StringField(token)}
}

func (c *ConfirmRequest) UnmarshalJSON(data []byte) error {
	*c = ConfirmRequest{}
	unknown, err := decodeObject(data, map[string]*Field{
		"token": &c.Token,
	})
	c.unknown = unknown
	return err
}

func (c ConfirmRequest) Validate() error {
	var messages []string
	if c.Token.empty() {
		messages = append(messages, "token should not be empty")
	}
	if !c.Token.IsString {
		messages = append(messages, "token must be a string")
	}
	messages = append(messages, unknownViolations(c.unknown)...)

	if len(messages) > 0 {
		return apperrors.NewValidationError(messages...)
	}
	return nil
}

// decodeObject fills the known fields of a JSON object and returns the names
// of any other properties, sorted.
func decodeObject(data []byte, fields map[string]*Field) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var unknown []string
	for key, value := range raw {
		field, ok := fields[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if err := field.UnmarshalJSON(value); err != nil {
			return nil, err
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

func emailViolations(name string, f Field) []string {
	var messages []string
	if f.empty() {
		messages = append(messages, name+" should not be empty")
	}
	if !f.IsString {
		messages = append(messages, name+" must be a string")
	}
	if !f.IsString || !isEmail(f.Value) {
		messages = append(messages, name+" must be an email")
	}
	return messages
}

func passwordViolations(name string, f Field) []string {
	var messages []string
	if !f.IsString || utf8.RuneCountInString(f.Value) > maxPasswordLength {
		messages = append(messages, name+" must be shorter than or equal to 60 characters")
	}
	if !f.IsString {
		messages = append(messages, name+" must be a string")
	}
	if f.empty() {
		messages = append(messages, name+" should not be empty")
	}
	return messages
}

func unknownViolations(unknown []string) []string {
	messages := make([]string, 0, len(unknown))
	for _, name := range unknown {
		messages = append(messages, "property "+name+" should not exist")
	}
	return messages
}

// isEmail accepts a bare address whose domain has at least one dot.
func isEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".") &&
		!strings.Contains(domain, "..")
}
