package kcommon

import (
	"context"
	"fmt"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

// TryCatchRun converts a panic raised by fn into a returned Kerror. Plain errors are wrapped as
// UnknownError (with stack); non-error panic values are logged and wrapped as NonErrorPanic.
func TryCatchRun(ctx context.Context, fn func()) (ret *kerror.Kerror) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case *kerror.Kerror:
			ret = v
		case error:
			ret = kerror.Wrap(v, "UnknownError", "", true)
		default:
			klogging.Error(ctx).WithPanic(r).Log("NonErrorPanic", "")
			ret = kerror.Create("NonErrorPanic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
	return
}
