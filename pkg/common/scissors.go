package common

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/causewayprotocol/causeway/pkg/supervisor"
)

var (
	ScissorsErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_scissor_errors_caught",
			Help: "Total number of panics caught and converted into errors",
		}, []string{"name"})
)

type (
	Scissors struct {
		runnable supervisor.Runnable
		name     string
	}
)

// WrapWithScissors converts panics in the wrapped runnable into ordinary
// errors, so the supervisor restarts it instead of the process dying.
func WrapWithScissors(runnable supervisor.Runnable, name string) supervisor.Runnable {
	s := Scissors{runnable: runnable, name: name}
	return s.Run
}

func (e *Scissors) Run(ctx context.Context) (result error) {
	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case error:
				result = fmt.Errorf("%s: %w", e.name, x)
			default:
				result = fmt.Errorf("%s: %v", e.name, x)
			}
			ScissorsErrors.WithLabelValues(e.name).Inc()
		}
	}()

	return e.runnable(ctx)
}
