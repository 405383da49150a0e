// Package tool implements the side-effecting boundary of the engine: a
// catalog of callable commerce tools with declared parameter schemas, a
// transport abstraction over their endpoints, and a gateway that validates,
// dispatches, normalizes and retries calls. Everything above this package
// sees only the uniform {success, data, error} result contract.
package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Definition describes one tool in the catalog: where it lives and what
// parameters it accepts. Parameters is a minimal JSON-Schema-like map
// (type/properties/required), validated strictly before any transport call.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Endpoint    string         `json:"endpoint"`
	Method      string         `json:"method"`
	Parameters  map[string]any `json:"parameters"`
}

// Catalog is a registry of tool definitions, safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewCatalog constructs a catalog preloaded with the given definitions.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{tools: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.tools[d.Name] = d
	}
	return c
}

// Register adds or replaces a tool definition.
func (c *Catalog) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool: definition requires a name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[def.Name] = def
	return nil
}

// Get looks up a tool by name.
func (c *Catalog) Get(name string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.tools[name]
	return def, ok
}

// Names returns the sorted tool names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCatalog returns the standard commerce tool set.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Definition{
			Name:        "check_order_status",
			Description: "Check the status of an order by order id",
			Endpoint:    "/api/orders/{order_id}/status",
			Method:      "GET",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{"type": "string"},
				},
				"required": []string{"order_id"},
			},
		},
		Definition{
			Name:        "get_shipping_info",
			Description: "Get detailed shipping and tracking information",
			Endpoint:    "/api/shipping/{tracking_number}",
			Method:      "GET",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tracking_number": map[string]any{"type": "string"},
				},
				"required": []string{"tracking_number"},
			},
		},
		Definition{
			Name:        "issue_store_credit",
			Description: "Issue store credit to a customer",
			Endpoint:    "/api/credits/issue",
			Method:      "POST",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_id":   map[string]any{"type": "string"},
					"amount":        map[string]any{"type": "number"},
					"bonus_percent": map[string]any{"type": "number"},
					"reason":        map[string]any{"type": "string"},
				},
				"required": []string{"customer_id", "amount", "reason"},
			},
		},
		Definition{
			Name:        "process_refund",
			Description: "Process a cash refund for an order",
			Endpoint:    "/api/refunds/process",
			Method:      "POST",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id":      map[string]any{"type": "string"},
					"amount":        map[string]any{"type": "number"},
					"reason":        map[string]any{"type": "string"},
					"refund_method": map[string]any{"type": "string"},
				},
				"required": []string{"order_id", "reason"},
			},
		},
		Definition{
			Name:        "request_reship",
			Description: "Request a reship of items, subject to human approval",
			Endpoint:    "/api/orders/{order_id}/reship",
			Method:      "POST",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{"type": "string"},
					"items":    map[string]any{"type": "array"},
					"reason":   map[string]any{"type": "string"},
				},
				"required": []string{"order_id", "reason"},
			},
		},
	)
}
