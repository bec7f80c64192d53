package circuitbreaker

import (
	"context"

	"github.com/sony/gobreaker"
)

// RPCCaller is the call surface of a JSON-RPC transport.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, params ...any) error
}

// RPCCircuitBreaker wraps a JSON-RPC transport with circuit breaker
// protection, so a provider outage fails fast instead of stacking up
// timed-out calls across the whole watch cycle.
type RPCCircuitBreaker struct {
	cb     *CircuitBreaker
	caller RPCCaller
}

// NewRPCCircuitBreaker wraps the caller with the chain RPC breaker profile.
func NewRPCCircuitBreaker(caller RPCCaller) *RPCCircuitBreaker {
	return &RPCCircuitBreaker{
		cb:     New(ChainRPCConfig()),
		caller: caller,
	}
}

// NewRPCCircuitBreakerWithConfig wraps the caller with a custom profile.
func NewRPCCircuitBreakerWithConfig(caller RPCCaller, cfg Config) *RPCCircuitBreaker {
	return &RPCCircuitBreaker{
		cb:     New(cfg),
		caller: caller,
	}
}

// CallContext executes an RPC call with circuit breaker protection.
// If the circuit is open, it returns ErrOpenState immediately without
// touching the transport.
func (rcb *RPCCircuitBreaker) CallContext(ctx context.Context, result any, method string, params ...any) error {
	_, err := rcb.cb.Execute(func() (interface{}, error) {
		return nil, rcb.caller.CallContext(ctx, result, method, params...)
	})
	return err
}

// State returns the current state of the circuit breaker.
func (rcb *RPCCircuitBreaker) State() gobreaker.State {
	return rcb.cb.State()
}

// IsOpen returns true if the circuit breaker is in the open state.
func (rcb *RPCCircuitBreaker) IsOpen() bool {
	return rcb.cb.IsOpen()
}

// Caller returns the underlying transport. This should only be used for
// calls that don't need circuit breaker protection.
func (rcb *RPCCircuitBreaker) Caller() RPCCaller {
	return rcb.caller
}
