// This file contains the searchCourses function declaration and argument
// decoding shared by all providers.
//
// Declarations use genai.Type* constants ("STRING"); the OpenAI conversion
// lowercases them to JSON Schema types.

package genai

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// SearchFunctionName is the only function the model may call.
const SearchFunctionName = "searchCourses"

// BuildSearchFunction returns the searchCourses declaration.
func BuildSearchFunction() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: SearchFunctionName,
		Description: "Finds training courses using title keywords and optional filters like month or availability. " +
			"Also supports comparing prices, dates, durations, and available spaces.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"keyword": {
					Type:        genai.TypeString,
					Description: "Search keyword like SMSTS, HSA, NEBOSH General, etc.",
				},
				"month": {
					Type:        genai.TypeString,
					Description: "Optional. Filter by course start month (e.g. July)",
				},
				"location": {
					Type:        genai.TypeString,
					Description: "Optional. Filter by city or training location (e.g. Chelmsford)",
				},
				"require_available_spaces": {
					Type:        genai.TypeBoolean,
					Description: "Optional. If true, returns only courses with available seats.",
				},
				"type": {
					Type:        genai.TypeString,
					Enum:        []string{"standard", "refresher"},
					Description: "Optional. Filter by course type",
				},
				"price": {
					Type:        genai.TypeNumber,
					Description: "Optional. Used to compare or filter by price",
				},
				"start_date": {
					Type:        genai.TypeString,
					Format:      "date",
					Description: "Optional. Used to compare or filter by course start date",
				},
				"end_date": {
					Type:        genai.TypeString,
					Format:      "date",
					Description: "Optional. Used to compare or filter by course end date",
				},
				"available_spaces": {
					Type:        genai.TypeInteger,
					Description: "Optional. Used to compare or filter by number of spaces left",
				},
			},
			Required: []string{"keyword"},
		},
	}
}

// buildOpenAITools converts the declaration to the OpenAI v3 tool format.
func buildOpenAITools() []openai.ChatCompletionToolUnionParam {
	fd := BuildSearchFunction()

	properties := make(map[string]any, len(fd.Parameters.Properties))
	for _, name := range slices.Sorted(maps.Keys(fd.Parameters.Properties)) {
		schema := fd.Parameters.Properties[name]
		prop := map[string]any{
			// genai.TypeString = "STRING" -> "string"
			"type":        strings.ToLower(string(schema.Type)),
			"description": schema.Description,
		}
		if len(schema.Enum) > 0 {
			prop["enum"] = schema.Enum
		}
		if schema.Format != "" {
			prop["format"] = schema.Format
		}
		properties[name] = prop
	}

	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   fd.Parameters.Required,
			},
		}),
	}
}

// DecodeSearchArgs decodes a JSON argument string. Invalid JSON yields
// empty args with Malformed set; it is never an error.
func DecodeSearchArgs(raw string) *SearchCall {
	call := &SearchCall{Raw: raw}
	if strings.TrimSpace(raw) == "" {
		return call
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		call.Malformed = true
		return call
	}
	call.Args, call.Malformed = argsFromMap(m)
	return call
}

// SearchCallFromMap builds a call from already-decoded arguments, as
// returned by Gemini.
func SearchCallFromMap(m map[string]any) *SearchCall {
	call := &SearchCall{}
	call.Args, call.Malformed = argsFromMap(m)
	if b, err := json.Marshal(m); err == nil {
		call.Raw = string(b)
	}
	return call
}

// argsFromMap is lenient: models sometimes send numbers as strings or
// booleans as "true". A field of an unusable type is dropped and reported.
func argsFromMap(m map[string]any) (SearchArgs, bool) {
	var a SearchArgs
	bad := false

	str := func(key string) string {
		v, ok := m[key]
		if !ok || v == nil {
			return ""
		}
		switch x := v.(type) {
		case string:
			return strings.TrimSpace(x)
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		default:
			bad = true
			return ""
		}
	}

	a.Keyword = str("keyword")
	a.Month = str("month")
	a.Location = str("location")
	a.Type = str("type")
	a.StartDate = str("start_date")
	a.EndDate = str("end_date")

	switch v := m["require_available_spaces"].(type) {
	case nil:
	case bool:
		a.RequireAvailableSpaces = v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			bad = true
		}
		a.RequireAvailableSpaces = b
	default:
		bad = true
	}

	if f, ok := number(m["price"]); ok {
		a.Price = &f
	} else if m["price"] != nil {
		bad = true
	}
	if f, ok := number(m["available_spaces"]); ok {
		n := int(f)
		a.AvailableSpaces = &n
	} else if m["available_spaces"] != nil {
		bad = true
	}

	return a, bad
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
