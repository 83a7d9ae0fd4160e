//go:build cgo && (linux || darwin || freebsd)

package native

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

static void* harness_dlopen_global(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_GLOBAL);
}

static const char* harness_dlerror(void) {
	return dlerror();
}
*/
import "C"

import (
	"errors"
	"unsafe"
)

// dlopenGlobal loads path so later libraries can resolve its symbols. The
// handle is never closed.
func dlopenGlobal(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	if h := C.harness_dlopen_global(cpath); h == nil {
		msg := C.harness_dlerror()
		if msg == nil {
			return errors.New("dlopen failed: " + path)
		}
		return errors.New(C.GoString(msg))
	}
	return nil
}
