package guesttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// Dispatch is the host surface a scripted guest calls into.
type Dispatch func(method string, params map[string]interface{}) (interface{}, error)

// LogEntry is one captured console line.
type LogEntry struct {
	Level   string
	Message string
}

// Result carries the script's value and captured console output.
type Result struct {
	Value    interface{}
	Console  []LogEntry
	Duration time.Duration
}

const defaultTimeout = 5 * time.Second

// Harness is a sandboxed runtime bound to one dispatch surface.
type Harness struct {
	vm       *goja.Runtime
	dispatch Dispatch
	timeout  time.Duration

	mu      sync.Mutex
	console []LogEntry
}

// New creates a harness. Dangerous globals are removed and timers are inert;
// the only way out of the script is host.call.
func New(dispatch Dispatch) (*Harness, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	h := &Harness{
		vm:       vm,
		dispatch: dispatch,
		timeout:  defaultTimeout,
	}
	if err := h.setupGlobals(); err != nil {
		return nil, err
	}
	return h, nil
}

// WithTimeout overrides the script execution deadline.
func (h *Harness) WithTimeout(d time.Duration) *Harness {
	h.timeout = d
	return h
}

// Run executes a guest script. Exceeding the deadline or cancelling the
// context interrupts the VM.
func (h *Harness) Run(ctx context.Context, script string) (*Result, error) {
	h.mu.Lock()
	h.console = nil
	h.mu.Unlock()

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	go func() {
		select {
		case <-timer.C:
			h.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			h.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := h.vm.RunString(script)
	duration := time.Since(start)

	h.mu.Lock()
	console := append([]LogEntry{}, h.console...)
	h.mu.Unlock()

	if err != nil {
		return &Result{Console: console, Duration: duration}, err
	}

	var value interface{}
	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		value = val.Export()
	}
	return &Result{Value: value, Console: console, Duration: duration}, nil
}

func (h *Harness) setupGlobals() error {
	h.vm.Set("require", goja.Undefined())
	h.vm.Set("process", goja.Undefined())
	h.vm.Set("module", goja.Undefined())
	h.vm.Set("exports", goja.Undefined())

	h.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	h.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	console := h.vm.NewObject()
	for _, level := range []string{"log", "warn", "error", "info"} {
		if err := console.Set(level, h.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	if err := h.vm.Set("console", console); err != nil {
		return err
	}

	host := h.vm.NewObject()
	if err := host.Set("call", h.makeHostCall()); err != nil {
		return err
	}
	return h.vm.Set("host", host)
}

func (h *Harness) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		h.mu.Lock()
		h.console = append(h.console, LogEntry{Level: level, Message: msg})
		h.mu.Unlock()

		return goja.Undefined()
	}
}

// makeHostCall binds host.call(method, params). Dispatch errors become
// thrown JavaScript errors so scripts can try/catch them.
func (h *Harness) makeHostCall() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(h.vm.ToValue("host.call needs a method name"))
		}
		method := call.Arguments[0].String()

		var params map[string]interface{}
		if len(call.Arguments) > 1 {
			exported := call.Arguments[1].Export()
			if m, ok := exported.(map[string]interface{}); ok {
				params = m
			} else if exported != nil {
				panic(h.vm.ToValue(fmt.Sprintf("host.call params must be an object, got %T", exported)))
			}
		}

		result, err := h.dispatch(method, params)
		if err != nil {
			panic(h.vm.ToValue(err.Error()))
		}
		if result == nil {
			return goja.Null()
		}

		// Scripts see the wire shape, not Go field names.
		raw, err := sonic.Marshal(result)
		if err != nil {
			panic(h.vm.ToValue(fmt.Sprintf("unencodable host result: %v", err)))
		}
		var plain interface{}
		if err := sonic.Unmarshal(raw, &plain); err != nil {
			panic(h.vm.ToValue(fmt.Sprintf("undecodable host result: %v", err)))
		}
		return h.vm.ToValue(plain)
	}
}
