//go:build !statsview

package statsview

func Launch(addr string) (*Server, error) {
	return nil, ErrUnavailable
}
