package provider

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MalloZup/realmd/internal/telemetry"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/metrics"
	"github.com/MalloZup/realmd/pkg/realm"
)

// Match is one discovered realm, paired with its declared type.
type Match struct {
	Realm *realm.Realm
	Type  string
}

// Aggregator fans a discovery request out to every registered provider
// concurrently, merges the answers, and registers previously unseen realms.
type Aggregator struct {
	providers *Registry
	realms    *realm.Registry
	sink      diag.Sink
}

// NewAggregator creates an aggregator over the given registries.
func NewAggregator(providers *Registry, realms *realm.Registry, sink diag.Sink) *Aggregator {
	return &Aggregator{providers: providers, realms: realms, sink: sink}
}

// Discover resolves input against every provider. When all is false only
// the highest-priority match is returned; exact priority ties go to the
// earlier-registered provider. Realms unseen so far are created and
// registered under their normalized domain name with the discovery data
// attached. When no provider matches, the first significant provider error
// is attached to the discovery-failed result.
func (a *Aggregator) Discover(ctx context.Context, op diag.Op, input string, all bool) ([]Match, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanDiscover, trace.WithAttributes(
		telemetry.Operation("discover"),
		telemetry.Invoker(op.Invoker),
		attribute.String(telemetry.AttrDiscoveryInput, input),
		attribute.Bool(telemetry.AttrDiscoveryAll, all),
	))
	defer span.End()

	providers := a.providers.All()

	start := time.Now()
	defer func() {
		metrics.ObserveDiscovery(time.Since(start))
	}()

	type answer struct {
		provider Provider
		result   *Result
		err      error
	}
	answers := make([]answer, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Discover(ctx, op, input)
			answers[i] = answer{provider: p, result: result, err: err}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		err = realm.WrapError(realm.KindCancelled, err, "Discovery was cancelled")
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	var firstErr error
	var winners []answer
	for _, ans := range answers {
		if ans.err != nil {
			a.sink.Error(op, ans.err, "Discovery failed for provider "+ans.provider.Name())
			if firstErr == nil {
				firstErr = ans.err
			}
			continue
		}
		if ans.result == nil || ans.result.Priority <= 0 {
			continue
		}
		winners = append(winners, ans)
	}

	if len(winners) == 0 {
		var err error
		if firstErr != nil {
			err = realm.WrapError(realm.KindDiscoveryFailed, firstErr,
				"Couldn't discover realm: %s", input)
		} else {
			err = realm.NewError(realm.KindDiscoveryFailed,
				"No such realm found: %s", input)
		}
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	// Stable selection sort keeps registration order on priority ties.
	ordered := make([]answer, 0, len(winners))
	for len(winners) > 0 {
		best := 0
		for i := 1; i < len(winners); i++ {
			if winners[i].result.Priority > winners[best].result.Priority {
				best = i
			}
		}
		ordered = append(ordered, winners[best])
		winners = append(winners[:best], winners[best+1:]...)
	}

	if !all {
		ordered = ordered[:1]
	}

	matches := make([]Match, 0, len(ordered))
	for _, ans := range ordered {
		matches = append(matches, Match{
			Realm: a.register(ans.provider, ans.result),
			Type:  ans.result.Type,
		})
	}
	return matches, nil
}

// register looks the discovered realm up in the realm registry, creating it
// on first sight.
func (a *Aggregator) register(p Provider, result *Result) *realm.Realm {
	name := result.Discovery.Get(realm.DiscoveryDomain)
	if name == "" {
		name = result.Discovery.Get(realm.DiscoveryRealm)
	}

	r, existed := a.realms.LookupOrRegister(name, result.Discovery)
	if !existed {
		r.SetProvider(p.Name())
		metrics.SetKnownRealms(len(a.realms.All()))
	}
	return r
}
