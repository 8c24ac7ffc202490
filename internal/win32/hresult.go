package win32

import "fmt"

// E_NOTIMPL is returned by COM stand-ins that cannot make the call.
const E_NOTIMPL = int32(-0x7FFFBFFF) // 0x80004001

// HRESULTError formats a failed HRESULT from vtable slot idx.
func HRESULTError(idx int, hr int32) error {
	return fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", idx, uint32(hr))
}
