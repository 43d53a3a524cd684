// Package openapi generates OpenAPI 3.0 specifications from the registered
// models. Paths, parameters, and tags are derived from each model's prefix
// and declared surfaces.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pnpstats/adminapi/core/registry"
	"github.com/pnpstats/adminapi/core/schema"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path or query
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Generator generates OpenAPI specs from registered models.
type Generator struct {
	reg     *registry.Registry
	info    Info
	servers []Server
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{
		reg: reg,
		info: Info{
			Title:       "PNP Admin API",
			Version:     "1.0.0",
			Description: "REST API generated from the model document",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate creates the OpenAPI specification.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"Record": {
					Type:                 "object",
					Description:          "A stored record",
					AdditionalProperties: true,
				},
				"Choice": {
					Type: "object",
					Properties: map[string]*Schema{
						"id":   {Description: "Distinct field value"},
						"text": {Type: "string"},
					},
				},
				"Error": {
					Type: "object",
					Properties: map[string]*Schema{
						"error": {Type: "string"},
					},
				},
				"RecordList": {
					Type: "object",
					Properties: map[string]*Schema{
						"count": {Type: "integer", Description: "Total count before pagination"},
						"next":  {Type: "string", Nullable: true},
						"previous": {
							Type:     "string",
							Nullable: true,
						},
						"results": {
							Type:  "array",
							Items: &Schema{Ref: "#/components/schemas/Record"},
						},
					},
				},
			},
		},
		Tags: make([]Tag, 0),
	}

	for _, entry := range g.reg.List() {
		g.generateModel(spec, entry)
	}

	return spec
}

// ToJSON renders the specification as indented JSON.
func (s *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (g *Generator) generateModel(spec *Spec, entry registry.Entry) {
	model := entry.Model
	prefix := entry.Prefix()
	base := "/" + prefix + "/"

	spec.Tags = append(spec.Tags, Tag{
		Name:        entry.Key,
		Description: fmt.Sprintf("Operations on %s records", entry.Key),
	})
	tags := []string{entry.Key}

	spec.Paths[base] = PathItem{
		Get: &Operation{
			Tags:        tags,
			Summary:     "List " + prefix,
			OperationID: prefix + "_list",
			Parameters:  g.listParameters(model),
			Responses: map[string]Response{
				"200": jsonResponse("Paginated record list", "#/components/schemas/RecordList"),
				"400": jsonResponse("Invalid query parameter", "#/components/schemas/Error"),
			},
		},
		Post: &Operation{
			Tags:        tags,
			Summary:     "Create a " + entry.Name,
			OperationID: prefix + "_create",
			RequestBody: recordBody(),
			Responses: map[string]Response{
				"201": jsonResponse("Created record", "#/components/schemas/Record"),
				"400": jsonResponse("Invalid request body", "#/components/schemas/Error"),
			},
		},
	}

	spec.Paths[base+"inativos/"] = PathItem{
		Get: &Operation{
			Tags:        tags,
			Summary:     "List inactive " + prefix,
			OperationID: prefix + "_inativos",
			Parameters:  g.listParameters(model),
			Responses: map[string]Response{
				"200": jsonResponse("Paginated record list", "#/components/schemas/RecordList"),
				"400": jsonResponse("Invalid query parameter", "#/components/schemas/Error"),
			},
		},
	}

	idParam := Parameter{
		Name:     "id",
		In:       "path",
		Required: true,
		Schema:   &Schema{Type: "string"},
	}

	spec.Paths[base+"{id}/"] = PathItem{
		Get: &Operation{
			Tags:        tags,
			Summary:     "Retrieve a " + entry.Name,
			OperationID: prefix + "_retrieve",
			Parameters:  append([]Parameter{idParam}, onlyParameter()),
			Responses: map[string]Response{
				"200": jsonResponse("The record", "#/components/schemas/Record"),
				"404": jsonResponse("Record not found", "#/components/schemas/Error"),
			},
		},
		Put: &Operation{
			Tags:        tags,
			Summary:     "Replace a " + entry.Name,
			OperationID: prefix + "_replace",
			Parameters:  []Parameter{idParam},
			RequestBody: recordBody(),
			Responses: map[string]Response{
				"200": jsonResponse("The updated record", "#/components/schemas/Record"),
				"404": jsonResponse("Record not found", "#/components/schemas/Error"),
			},
		},
		Patch: &Operation{
			Tags:        tags,
			Summary:     "Update a " + entry.Name,
			OperationID: prefix + "_update",
			Parameters:  []Parameter{idParam},
			RequestBody: recordBody(),
			Responses: map[string]Response{
				"200": jsonResponse("The updated record", "#/components/schemas/Record"),
				"404": jsonResponse("Record not found", "#/components/schemas/Error"),
			},
		},
		Delete: &Operation{
			Tags:        tags,
			Summary:     "Delete a " + entry.Name,
			OperationID: prefix + "_delete",
			Parameters:  []Parameter{idParam},
			Responses: map[string]Response{
				"204": {Description: "Record deleted"},
				"404": jsonResponse("Record not found", "#/components/schemas/Error"),
			},
		},
	}

	for _, name := range model.List.ActionNames() {
		spec.Paths[base+name+"/"] = actionPathItem(tags, prefix, name, nil)
	}
	for _, name := range model.View.ActionNames() {
		spec.Paths[base+"{id}/"+name+"/"] = actionPathItem(tags, prefix, name, &idParam)
	}
}

// listParameters builds the query parameters of a list endpoint. Filter
// fields become individual parameters in declaration-independent order.
func (g *Generator) listParameters(model schema.Model) []Parameter {
	params := []Parameter{
		{
			Name:        "search",
			In:          "query",
			Description: "Space-separated terms matched against the searchable fields",
			Schema:      &Schema{Type: "string"},
		},
		{
			Name:        "ordering",
			In:          "query",
			Description: "Comma-separated ordering fields, prefix with - for descending",
			Schema:      &Schema{Type: "string"},
		},
		{
			Name:   "limit",
			In:     "query",
			Schema: &Schema{Type: "integer"},
		},
		{
			Name:   "offset",
			In:     "query",
			Schema: &Schema{Type: "integer"},
		},
		onlyParameter(),
		{
			Name:        "choices_field",
			In:          "query",
			Description: "Return distinct values of this field instead of records",
			Schema:      &Schema{Type: "string"},
		},
		{
			Name:        "choices_search",
			In:          "query",
			Description: "Narrow the distinct values returned by choices_field",
			Schema:      &Schema{Type: "string"},
		},
	}

	filters := append([]string(nil), model.Filters...)
	sort.Strings(filters)
	for _, field := range filters {
		params = append(params, Parameter{
			Name:        field,
			In:          "query",
			Description: "Filter by exact value of " + field,
			Schema:      &Schema{Type: "string"},
		})
	}

	return params
}

func onlyParameter() Parameter {
	return Parameter{
		Name:        "only",
		In:          "query",
		Description: "Comma-separated fields to include in each record",
		Schema:      &Schema{Type: "string"},
	}
}

func recordBody() *RequestBody {
	return &RequestBody{
		Required: true,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Ref: "#/components/schemas/Record"}},
		},
	}
}

func jsonResponse(description, ref string) Response {
	return Response{
		Description: description,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Ref: ref}},
		},
	}
}

func actionPathItem(tags []string, prefix, name string, idParam *Parameter) PathItem {
	var params []Parameter
	opID := prefix + "_" + name
	if idParam != nil {
		params = []Parameter{*idParam}
		opID = prefix + "_record_" + name
	}

	return PathItem{
		Get: &Operation{
			Tags:        tags,
			Summary:     "Input template for " + name,
			OperationID: opID + "_template",
			Parameters:  params,
			Responses: map[string]Response{
				"200": jsonResponse("Action input template", "#/components/schemas/Record"),
			},
		},
		Post: &Operation{
			Tags:        tags,
			Summary:     "Execute " + name,
			OperationID: opID,
			Parameters:  params,
			RequestBody: &RequestBody{
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/Record"}},
				},
			},
			Responses: map[string]Response{
				"200": jsonResponse("Action result", "#/components/schemas/Record"),
				"404": jsonResponse("Record not found", "#/components/schemas/Error"),
			},
		},
	}
}
