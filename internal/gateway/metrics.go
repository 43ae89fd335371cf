package gateway

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/tracer"
	hzprom "github.com/hertz-contrib/monitor-prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tgifai/newscast/internal/pkg/prometheus"
)

// newServerTracer records hertz request metrics into the shared registry. The
// tracer's own listener is disabled; the registry is served by metricsHandler
// on the gateway port instead.
func newServerTracer() tracer.Tracer {
	return hzprom.NewServerTracer("", "",
		hzprom.WithRegistry(prometheus.GetRegistry()),
		hzprom.WithDisableServer(true),
	)
}

func metricsHandler() app.HandlerFunc {
	return adaptor.HertzHandler(promhttp.HandlerFor(prometheus.GetRegistry(), promhttp.HandlerOpts{}))
}
