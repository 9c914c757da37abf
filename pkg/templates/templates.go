package templates

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/citizenwallet/multisig/internal/common"
	"github.com/citizenwallet/multisig/pkg/multisig"
)

type ID string

const (
	BankSend         ID = "bank_send"
	TokenTransfer    ID = "token_transfer"
	ProtocolDeposit  ID = "protocol_deposit"
	ProtocolWithdraw ID = "protocol_withdraw"
	Custom           ID = "custom"
)

const DefaultDenom = "uusd"

type FieldKind string

const (
	KindAddress  FieldKind = "address"
	KindAmount   FieldKind = "amount"
	KindDecimals FieldKind = "decimals"
	KindDenom    FieldKind = "denom"
	KindJSON     FieldKind = "json"
)

// Field describes one form input of a template
type Field struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Default string    `json:"default,omitempty"`

	// Decimals is the fixed precision of an amount field,
	// DecimalsField names the field holding a user supplied precision instead
	Decimals      int32  `json:"decimals,omitempty"`
	DecimalsField string `json:"decimals_field,omitempty"`
}

// Fields are raw user inputs keyed by field name
type Fields map[string]string

// Values are validated inputs, amounts already converted to base units
type Values map[string]string

type renderFunc func(v Values) ([]json.RawMessage, error)

// Template is one proposal action type
type Template struct {
	ID     ID      `json:"id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`

	render renderFunc
}

// Registry holds the static set of templates, it is never mutated after creation
type Registry struct {
	prefix    string
	templates map[ID]*Template
}

var denomRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{2,127}$`)

// NewRegistry creates the template registry validating addresses against prefix
func NewRegistry(prefix string) *Registry {
	r := &Registry{
		prefix:    prefix,
		templates: map[ID]*Template{},
	}

	for _, t := range builtin() {
		r.templates[t.ID] = t
	}

	return r
}

// Lookup returns the template for id
func (r *Registry) Lookup(id ID) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// List returns all templates sorted by id
func (r *Registry) List() []Template {
	list := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		list = append(list, *t)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	return list
}

// Render validates the fields of a template and renders them into contract messages
func (r *Registry) Render(id ID, fields Fields) ([]json.RawMessage, error) {
	t, ok := r.Lookup(id)
	if !ok {
		return nil, multisig.NewValidationError("action_type", "unknown action type "+string(id))
	}

	v, err := r.validate(t, fields)
	if err != nil {
		return nil, err
	}

	return t.render(v)
}

func (r *Registry) validate(t *Template, fields Fields) (Values, error) {
	v := Values{}

	value := func(f Field) string {
		s := strings.TrimSpace(fields[f.Name])
		if s == "" {
			s = f.Default
		}
		return s
	}

	// amounts depend on decimals, resolve everything else first
	for _, f := range t.Fields {
		s := value(f)
		if s == "" && f.Kind != KindAmount {
			return nil, multisig.NewValidationError(f.Name, "is required")
		}

		switch f.Kind {
		case KindAddress:
			addr, err := common.NormalizeAddress(s, r.prefix)
			if err != nil {
				return nil, multisig.NewValidationError(f.Name, "must be a valid "+r.prefix+" address")
			}
			v[f.Name] = addr
		case KindDecimals:
			d, err := ParseDecimals(s)
			if err != nil {
				return nil, withField(err, f.Name)
			}
			v[f.Name] = strconv.Itoa(int(d))
		case KindDenom:
			if !denomRe.MatchString(s) {
				return nil, multisig.NewValidationError(f.Name, "must be a valid denomination")
			}
			v[f.Name] = s
		case KindJSON:
			// kept verbatim, parsed by the render func
			v[f.Name] = fields[f.Name]
		}
	}

	for _, f := range t.Fields {
		if f.Kind != KindAmount {
			continue
		}

		decimals := f.Decimals
		if f.DecimalsField != "" {
			d, err := strconv.Atoi(v[f.DecimalsField])
			if err != nil {
				return nil, multisig.NewValidationError(f.DecimalsField, "must be an integer")
			}
			decimals = int32(d)
		}

		base, err := ToBaseUnits(value(f), decimals)
		if err != nil {
			return nil, withField(err, f.Name)
		}
		v[f.Name] = base
	}

	return v, nil
}

func builtin() []*Template {
	return []*Template{
		{
			ID:    BankSend,
			Label: "Bank transfer",
			Fields: []Field{
				{Name: "recipient", Label: "Recipient", Kind: KindAddress},
				{Name: "amount", Label: "Amount", Kind: KindAmount, Decimals: NativeDecimals},
				{Name: "denom", Label: "Denom", Kind: KindDenom, Default: DefaultDenom},
			},
			render: renderBankSend,
		},
		{
			ID:    TokenTransfer,
			Label: "Token transfer",
			Fields: []Field{
				{Name: "token", Label: "Token contract", Kind: KindAddress},
				{Name: "recipient", Label: "Recipient", Kind: KindAddress},
				{Name: "amount", Label: "Amount", Kind: KindAmount, DecimalsField: "decimals"},
				{Name: "decimals", Label: "Decimals", Kind: KindDecimals, Default: "6"},
			},
			render: renderTokenTransfer,
		},
		{
			ID:    ProtocolDeposit,
			Label: "Protocol deposit",
			Fields: []Field{
				{Name: "market", Label: "Market contract", Kind: KindAddress},
				{Name: "amount", Label: "Amount", Kind: KindAmount, Decimals: NativeDecimals},
				{Name: "denom", Label: "Denom", Kind: KindDenom, Default: DefaultDenom},
			},
			render: renderProtocolDeposit,
		},
		{
			ID:    ProtocolWithdraw,
			Label: "Protocol withdraw",
			Fields: []Field{
				{Name: "market", Label: "Market contract", Kind: KindAddress},
				{Name: "atoken", Label: "Deposit token contract", Kind: KindAddress},
				{Name: "amount", Label: "Amount", Kind: KindAmount, Decimals: NativeDecimals},
			},
			render: renderProtocolWithdraw,
		},
		{
			ID:    Custom,
			Label: "Custom JSON",
			Fields: []Field{
				{Name: "json", Label: "Messages", Kind: KindJSON},
			},
			render: renderCustom,
		},
	}
}

// withField moves a conversion error onto the form field that caused it
func withField(err error, field string) error {
	var verr *multisig.ValidationError
	if errors.As(err, &verr) {
		return multisig.NewValidationError(field, verr.Reason)
	}

	return multisig.NewValidationError(field, err.Error())
}
