package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
	lua "github.com/yuin/gopher-lua"
)

// Parser executes profile documents in a sandboxed Lua VM with the
// session's hardware facts injected.
type Parser struct {
	facts *hardware.Facts
}

// NewParser creates a profile parser. facts may be nil, in which case
// no hw table is injected and documents must not reference it.
func NewParser(facts *hardware.Facts) *Parser {
	return &Parser{facts: facts}
}

// ParseString parses a profile document from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	L := newSandboxedVM()
	defer L.Close()

	if p.facts != nil {
		if err := InjectHardwareTable(L, p.facts); err != nil {
			return nil, fmt.Errorf("inject hardware table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractDocument(L)
}

// ParseError represents a profile parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractDocument extracts the profile from a Lua state. It expects a
// global "kforge" table with the document structure.
func extractDocument(L *lua.LState) (*Document, error) {
	root := L.GetGlobal(luaGlobalKforge)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'kforge' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	doc := &Document{}
	table := root.(*lua.LTable)

	if metaVal := table.RawGetString(luaFieldMeta); metaVal.Type() == lua.LTTable {
		doc.Meta = extractMeta(metaVal.(*lua.LTable))
	}

	if cfgVal := table.RawGetString(luaFieldConfig); cfgVal.Type() == lua.LTTable {
		cfg, err := extractConfigSection(cfgVal.(*lua.LTable))
		if err != nil {
			return nil, &ParseError{Message: "invalid config section", Detail: err.Error()}
		}
		doc.Config = cfg
	}

	if modVal := table.RawGetString(luaFieldModules); modVal.Type() == lua.LTTable {
		doc.Modules = extractModuleSection(modVal.(*lua.LTable))
	}

	if err := doc.Validate(); err != nil {
		return nil, &ParseError{
			Message: "profile validation failed",
			Detail:  err.Error(),
		}
	}

	return doc, nil
}

// extractMeta extracts document metadata from a Lua table.
func extractMeta(table *lua.LTable) Meta {
	meta := Meta{}

	if nameVal := table.RawGetString(luaFieldName); nameVal.Type() == lua.LTString {
		meta.Name = nameVal.String()
	}
	if descVal := table.RawGetString(luaFieldDesc); descVal.Type() == lua.LTString {
		meta.Description = descVal.String()
	}

	return meta
}

// extractConfigSection extracts the family selections and baked-in
// parameters. Enum strings are mapped through the closed unions so an
// unknown variant fails parsing instead of flowing downstream.
func extractConfigSection(table *lua.LTable) (ConfigSection, error) {
	cfg := ConfigSection{}

	if v := table.RawGetString(luaFieldLTO); v.Type() == lua.LTString {
		mode, err := kconfig.ParseLTOMode(v.String())
		if err != nil {
			return cfg, err
		}
		cfg.LTO = &mode
	}

	if v := table.RawGetString(luaFieldPreempt); v.Type() == lua.LTString {
		mode, err := kconfig.ParsePreemptMode(v.String())
		if err != nil {
			return cfg, err
		}
		cfg.Preempt = &mode
	}

	if v := table.RawGetString(luaFieldTickHz); v.Type() == lua.LTNumber {
		rate, err := kconfig.ParseTickRate(int(lua.LVAsNumber(v)))
		if err != nil {
			return cfg, err
		}
		cfg.TickHz = &rate
	}

	if v := table.RawGetString(luaFieldNRCPUs); v.Type() == lua.LTNumber {
		n := int(lua.LVAsNumber(v))
		cfg.NRCPUs = &n
	}

	if v := table.RawGetString(luaFieldHostname); v.Type() == lua.LTString {
		h := v.String()
		cfg.Hostname = &h
	}

	return cfg, nil
}

// extractModuleSection extracts module reconciliation preferences.
// Nil entries in the extra list (from hw.when conditionals) are
// filtered out.
func extractModuleSection(table *lua.LTable) ModuleSection {
	mod := ModuleSection{}

	if v := table.RawGetString(luaFieldAutoDetect); v.Type() == lua.LTBool {
		b := bool(v.(lua.LBool))
		mod.AutoDetect = &b
	}

	if v := table.RawGetString(luaFieldWhitelist); v.Type() == lua.LTBool {
		b := bool(v.(lua.LBool))
		mod.Whitelist = &b
	}

	if v := table.RawGetString(luaFieldExtra); v.Type() == lua.LTTable {
		v.(*lua.LTable).ForEach(func(key, value lua.LValue) {
			// Skip nils from conditionals like: hw.when(hw.is_amd_gpu, "amdgpu")
			if value.Type() == lua.LTNil {
				return
			}
			if value.Type() != lua.LTString {
				return
			}
			mod.Extra = append(mod.Extra, value.String())
		})
	}

	return mod
}

// FormatError formats a ParseError for user display. In verbose mode,
// show the raw Lua error. Otherwise, show the friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
