package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "id": "gas-tracker",
  "version": "1.0.0",
  "category": "utility",
  "api": {
    "endpoint": "/api/gas-tracker",
    "method": "GET",
    "parameters": [
      {"name": "network", "type": "string", "required": true},
      {"name": "verbose", "type": "bool", "required": false}
    ]
  },
  "response": {"kind": "data", "handler": "gastracker.Handler", "format": "json"},
  "permissions": {"readBalance": false, "executeTrade": false, "accessPortfolio": false}
}`

const validYAML = `
id: dca-bot
version: 1.2.0
category: trading
api:
  endpoint: /api/dca-bot
  method: POST
  requiresWallet: true
  parameters:
    - name: token
      type: string
      required: true
response:
  kind: trade
  handler: dcabot.Handler
permissions:
  executeTrade: true
`

func TestParse(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		m, err := Parse([]byte(validJSON))
		require.NoError(t, err)
		assert.Equal(t, "gas-tracker", m.ID)
		assert.Equal(t, "1.0.0", m.Version)
		assert.Equal(t, MethodGet, m.API.Method)
		assert.Equal(t, KindData, m.Response.Kind)
		assert.False(t, m.Permissions.ExecuteTrade)
	})

	t.Run("valid YAML", func(t *testing.T) {
		m, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		assert.Equal(t, "dca-bot", m.ID)
		assert.True(t, m.API.RequiresWallet)
		assert.True(t, m.Permissions.ExecuteTrade)
		assert.Equal(t, KindTrade, m.Response.Kind)
	})

	t.Run("defaults applied for display fields", func(t *testing.T) {
		m, err := Parse([]byte(`{
			"id": "x", "version": "0.1.0",
			"api": {"endpoint": "/api/x", "method": "GET"},
			"response": {"kind": "data", "handler": "x.Handler"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, CategoryUtility, m.Category)
		assert.Equal(t, FormatJSON, m.Response.Format)
	})

	t.Run("missing required fields is a schema error", func(t *testing.T) {
		_, err := Parse([]byte(`{"version": "1.0.0"}`))
		require.Error(t, err)

		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("non-semver version is a schema error", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"id": "x", "version": "latest",
			"api": {"endpoint": "/api/x", "method": "GET"},
			"response": {"kind": "data", "handler": "x.Handler"}
		}`))
		require.Error(t, err)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, "version", schemaErr.Field)
	})

	t.Run("unknown enum value is an enum error", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"id": "x", "version": "1.0.0", "category": "gambling",
			"api": {"endpoint": "/api/x", "method": "GET"},
			"response": {"kind": "data", "handler": "x.Handler"}
		}`))
		require.Error(t, err)

		var enumErr *EnumError
		require.True(t, errors.As(err, &enumErr))
		assert.Equal(t, "category", enumErr.Field)
	})

	t.Run("unsupported method is an enum error", func(t *testing.T) {
		_, err := Parse([]byte(`{
			"id": "x", "version": "1.0.0",
			"api": {"endpoint": "/api/x", "method": "DELETE"},
			"response": {"kind": "data", "handler": "x.Handler"}
		}`))
		require.Error(t, err)

		var enumErr *EnumError
		require.True(t, errors.As(err, &enumErr))
		assert.Equal(t, "api.method", enumErr.Field)
	})

	t.Run("garbage document is a schema error", func(t *testing.T) {
		_, err := Parse([]byte("{{{not a document"))
		require.Error(t, err)

		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})
}

func TestRequiredParameters(t *testing.T) {
	m, err := Parse([]byte(validJSON))
	require.NoError(t, err)

	req := m.RequiredParameters()
	require.Len(t, req, 1)
	assert.Equal(t, "network", req[0].Name)
}

func TestRouteKey(t *testing.T) {
	m, err := Parse([]byte(validJSON))
	require.NoError(t, err)
	assert.Equal(t, "GET /api/gas-tracker", m.RouteKey())
}
