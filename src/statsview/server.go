// Package statsview serves runtime graphs and the pprof pages when the binary
// is built with the statsview tag. Other builds only return ErrUnavailable.
package statsview

import "errors"

var ErrUnavailable = errors.New("built without statsview support")

// Server is a running statistics page
type Server struct {
	Addr string
	stop func()
}

// Stop is safe on a nil Server
func (s *Server) Stop() {
	if s == nil || s.stop == nil {
		return
	}
	s.stop()
	s.stop = nil
}
