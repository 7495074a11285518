//go:build statsview

package statsview

import (
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/zerolog/log"
)

func Launch(addr string) (*Server, error) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()

	log.Info().Str("module", "Statsview").Msgf("Runtime statistics at http://%s/debug/statsview", addr)
	return &Server{
		Addr: addr,
		stop: func() { mgr.Stop() },
	}, nil
}
