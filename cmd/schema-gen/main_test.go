package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateGroupSchema(t *testing.T) {
	for _, group := range schemaGroups() {
		schema := generateGroupSchema(group)
		defs, ok := schema["$defs"].(map[string]any)
		if assert.True(t, ok, group.Name) {
			assert.NotEmpty(t, defs, group.Name)
		}
	}

	mappingSchema := generateGroupSchema(schemaGroups()[0])
	defs := mappingSchema["$defs"].(map[string]any)
	assert.Contains(t, defs, "Definition")
	assert.Contains(t, defs, "FieldMapping")
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Imports", capitalize("imports"))
	assert.Equal(t, "", capitalize(""))
}
