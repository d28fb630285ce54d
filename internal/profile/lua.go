package profile

import (
	"github.com/forgelab/kforge/internal/hardware"
	lua "github.com/yuin/gopher-lua"
)

// InjectHardwareTable creates a read-only hardware facts table and
// injects it into the Lua state as the global "hw". It must be called
// before loading any profile document code.
func InjectHardwareTable(L *lua.LState, facts *hardware.Facts) error {
	hwTable := L.NewTable()

	L.SetField(hwTable, "cpu_count", lua.LNumber(facts.CPUCount))
	L.SetField(hwTable, "gpu", lua.LString(facts.GPU.String()))
	L.SetField(hwTable, "has_clang_lto", lua.LBool(facts.HasClangLTO))
	L.SetField(hwTable, "has_module_list", lua.LBool(facts.HasModuleList()))

	// GPU vendor booleans
	L.SetField(hwTable, "is_amd_gpu", lua.LBool(facts.GPU == hardware.GPUAMD))
	L.SetField(hwTable, "is_intel_gpu", lua.LBool(facts.GPU == hardware.GPUIntel))
	L.SetField(hwTable, "is_nvidia_gpu", lua.LBool(facts.GPU == hardware.GPUNVIDIA))

	// Helper function: when(condition, value)
	// Returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(hwTable, "when", whenFunc)

	// Make the table read-only using a proxy table with metatable
	readOnlyTable := makeReadOnly(L, hwTable)

	L.SetGlobal("hw", readOnlyTable)

	return nil
}

// makeReadOnly makes a Lua table read-only by creating a proxy table
// with a metatable. The proxy redirects reads to the original table but
// prevents all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	// Redirect reads to the original table
	L.SetField(mt, "__index", table)

	// Prevent all writes (both new and existing keys)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("hw table is read-only and cannot be modified")
		return 0
	}))

	// Prevent changing the metatable itself
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
