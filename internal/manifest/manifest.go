// Package manifest defines the declarative feature descriptor consumed by the
// registry. A manifest is the only artifact a feature author must ship besides
// the handler itself; everything the host needs to route, validate, and
// permission-check a feature is declared here.
package manifest

import (
	"errors"
	"fmt"
	"regexp"
)

// Category classifies a feature for display and discovery.
type Category string

const (
	CategoryTrading   Category = "trading"
	CategoryAnalysis  Category = "analysis"
	CategoryPortfolio Category = "portfolio"
	CategoryUtility   Category = "utility"
)

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTrading, CategoryAnalysis, CategoryPortfolio, CategoryUtility:
		return true
	}
	return false
}

// Method is the HTTP method a feature endpoint accepts.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// IsValid checks if the method is one of the supported enum values.
func (m Method) IsValid() bool {
	return m == MethodGet || m == MethodPost
}

// ResponseKind describes the semantic shape of a feature's result.
type ResponseKind string

const (
	KindData     ResponseKind = "data"
	KindTrade    ResponseKind = "trade"
	KindBatch    ResponseKind = "batch"
	KindAnalysis ResponseKind = "analysis"
)

// IsValid checks if the response kind is one of the supported enum values.
func (k ResponseKind) IsValid() bool {
	switch k {
	case KindData, KindTrade, KindBatch, KindAnalysis:
		return true
	}
	return false
}

// Format is the output format of a feature's data payload.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// IsValid checks if the format is one of the supported enum values.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatHTML:
		return true
	}
	return false
}

// Manifest is the complete feature descriptor. It is loaded once at
// registration and immutable thereafter; shipping a new version means
// registering a new manifest, never mutating one in place.
type Manifest struct {
	ID       string   `json:"id" yaml:"id"`
	Version  string   `json:"version" yaml:"version"`
	Icon     string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Prompt   string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Category Category `json:"category" yaml:"category"`

	API         APIContract      `json:"api" yaml:"api"`
	Response    ResponseContract `json:"response" yaml:"response"`
	Permissions Permissions      `json:"permissions" yaml:"permissions"`
	Testing     Testing          `json:"testing,omitempty" yaml:"testing,omitempty"`
}

// APIContract declares the route and request shape of a feature endpoint.
type APIContract struct {
	Endpoint       string      `json:"endpoint" yaml:"endpoint"`
	Method         Method      `json:"method" yaml:"method"`
	RequiresAuth   bool        `json:"requiresAuth" yaml:"requiresAuth"`
	RequiresWallet bool        `json:"requiresWallet" yaml:"requiresWallet"`
	Parameters     []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Parameter declares one request parameter. Order is preserved from the
// manifest document.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// ResponseContract declares how a feature's output is produced and rendered.
type ResponseContract struct {
	Kind    ResponseKind `json:"kind" yaml:"kind"`
	Handler string       `json:"handler" yaml:"handler"`
	Format  Format       `json:"format" yaml:"format"`
}

// Permissions are the capability ceiling for a feature's handler. The
// pipeline never grants a capability the manifest does not declare; these
// three flags are the entire trust boundary with third-party feature code.
type Permissions struct {
	ReadBalance     bool `json:"readBalance" yaml:"readBalance"`
	ExecuteTrade    bool `json:"executeTrade" yaml:"executeTrade"`
	AccessPortfolio bool `json:"accessPortfolio" yaml:"accessPortfolio"`
}

// Testing holds optional testing metadata for a feature.
type Testing struct {
	MockData     bool   `json:"mockData,omitempty" yaml:"mockData,omitempty"`
	TestEndpoint string `json:"testEndpoint,omitempty" yaml:"testEndpoint,omitempty"`
}

var semverRe = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Validate checks required fields and closed enum sets, collecting every
// violation rather than stopping at the first.
func (m *Manifest) Validate() error {
	var errs []error

	if m.ID == "" {
		errs = append(errs, &SchemaError{Field: "id", Reason: "required"})
	}
	if m.Version == "" {
		errs = append(errs, &SchemaError{Field: "version", Reason: "required"})
	} else if !semverRe.MatchString(m.Version) {
		errs = append(errs, &SchemaError{Field: "version", Reason: fmt.Sprintf("not a semantic version: %q", m.Version)})
	}
	if m.Category != "" && !m.Category.IsValid() {
		errs = append(errs, &EnumError{Field: "category", Value: string(m.Category)})
	}

	if m.API.Endpoint == "" {
		errs = append(errs, &SchemaError{Field: "api.endpoint", Reason: "required"})
	}
	if m.API.Method == "" {
		errs = append(errs, &SchemaError{Field: "api.method", Reason: "required"})
	} else if !m.API.Method.IsValid() {
		errs = append(errs, &EnumError{Field: "api.method", Value: string(m.API.Method)})
	}
	for i, p := range m.API.Parameters {
		if p.Name == "" {
			errs = append(errs, &SchemaError{Field: fmt.Sprintf("api.parameters[%d].name", i), Reason: "required"})
		}
	}

	if m.Response.Kind == "" {
		errs = append(errs, &SchemaError{Field: "response.kind", Reason: "required"})
	} else if !m.Response.Kind.IsValid() {
		errs = append(errs, &EnumError{Field: "response.kind", Value: string(m.Response.Kind)})
	}
	if m.Response.Handler == "" {
		errs = append(errs, &SchemaError{Field: "response.handler", Reason: "required"})
	}
	if m.Response.Format != "" && !m.Response.Format.IsValid() {
		errs = append(errs, &EnumError{Field: "response.format", Value: string(m.Response.Format)})
	}

	return errors.Join(errs...)
}

// RequiredParameters returns the declared parameters marked required, in
// manifest order.
func (m *Manifest) RequiredParameters() []Parameter {
	var req []Parameter
	for _, p := range m.API.Parameters {
		if p.Required {
			req = append(req, p)
		}
	}
	return req
}

// RouteKey identifies the manifest's route for collision checks and
// resolution: method and endpoint together.
func (m *Manifest) RouteKey() string {
	return string(m.API.Method) + " " + m.API.Endpoint
}
