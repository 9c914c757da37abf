package draft

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/citizenwallet/multisig/pkg/templates"
)

// RequiredReason is shown verbatim when any of the draft inputs is missing
const RequiredReason = "All fields are required."

// Draft is a validated proposal ready to be submitted. Its messages cannot be
// changed once built, build a new draft to resubmit.
type Draft struct {
	title       string
	description string
	actionType  templates.ID
	fields      templates.Fields
	msgs        []json.RawMessage
}

func (d *Draft) Title() string {
	return d.title
}

func (d *Draft) Description() string {
	return d.description
}

func (d *Draft) ActionType() templates.ID {
	return d.actionType
}

// Fields returns a copy of the template inputs the draft was rendered from
func (d *Draft) Fields() templates.Fields {
	f := make(templates.Fields, len(d.fields))
	for k, v := range d.fields {
		f[k] = v
	}
	return f
}

// Msgs returns a copy of the rendered messages
func (d *Draft) Msgs() []json.RawMessage {
	return cloneMsgs(d.msgs)
}

// MarshalJSON renders the messages as a JSON array
func (d *Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		ActionType  templates.ID      `json:"action_type,omitempty"`
		Msgs        []json.RawMessage `json:"msgs"`
	}{d.title, d.description, d.actionType, d.msgs})
}

// ProposeMsg assembles the contract execute message creating the proposal
func (d *Draft) ProposeMsg() multisig.ExecuteMsg {
	return multisig.ExecuteMsg{
		Propose: &multisig.ProposeMsg{
			Title:       d.title,
			Description: d.description,
			Msgs:        d.Msgs(),
		},
	}
}

// Build validates a title, description and rendered messages into a draft
func Build(title, description string, actionType templates.ID, fields templates.Fields, msgs []json.RawMessage) (*Draft, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	missing := []string{}
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(msgs) == 0 {
		missing = append(missing, "msgs")
	}

	if len(missing) > 0 {
		return nil, multisig.NewValidationError(strings.Join(missing, ", "), RequiredReason)
	}

	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(m, &obj); err != nil || obj == nil {
			return nil, multisig.NewValidationError("msgs", "every message must be a JSON object")
		}

		var buf bytes.Buffer
		if err := json.Compact(&buf, m); err != nil {
			return nil, multisig.NewValidationError("msgs", "invalid JSON: "+err.Error())
		}
		out = append(out, buf.Bytes())
	}

	f := templates.Fields{}
	for k, v := range fields {
		f[k] = v
	}

	return &Draft{
		title:       title,
		description: description,
		actionType:  actionType,
		fields:      f,
		msgs:        out,
	}, nil
}

// BuildFromJSON builds a draft from raw message JSON pasted by the user
func BuildFromJSON(title, description, raw string) (*Draft, error) {
	var msgs []json.RawMessage
	var parseErr error
	if strings.TrimSpace(raw) != "" {
		msgs, parseErr = templates.ParseMessages(raw)
	}

	return finish(title, description, templates.Custom, templates.Fields{"json": raw}, msgs, parseErr)
}

// FromTemplate renders a template and builds the draft around its output
func FromTemplate(r *templates.Registry, title, description string, id templates.ID, fields templates.Fields) (*Draft, error) {
	if id == templates.Custom {
		return BuildFromJSON(title, description, fields["json"])
	}

	msgs, err := r.Render(id, fields)

	return finish(title, description, id, fields, msgs, err)
}

// finish reports missing title or description before any message error
func finish(title, description string, id templates.ID, fields templates.Fields, msgs []json.RawMessage, msgsErr error) (*Draft, error) {
	if msgsErr != nil {
		if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
			_, err := Build(title, description, id, fields, nil)
			return nil, err
		}
		return nil, msgsErr
	}

	return Build(title, description, id, fields, msgs)
}

func cloneMsgs(msgs []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(msgs))
	for i, m := range msgs {
		out[i] = append(json.RawMessage(nil), m...)
	}
	return out
}
