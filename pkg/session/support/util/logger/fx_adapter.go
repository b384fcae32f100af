package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter implements fxevent.Logger on top of the leveled logger.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs container events. Successful wiring is logged at DEBUG, failures at ERROR.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("Start hook running: %s (registered by %s)", shortFuncName(e.FunctionName), shortFuncName(e.CallerName))
	case *fxevent.OnStartExecuted:
		logHookResult("Start", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		Debugf("Stop hook running: %s (registered by %s)", shortFuncName(e.FunctionName), shortFuncName(e.CallerName))
	case *fxevent.OnStopExecuted:
		logHookResult("Stop", e.FunctionName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supplying %s failed: %v", e.TypeName, e.Err)
			return
		}
		Debugf("Supplied: %s", e.TypeName)
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("Provider %s failed: %v", shortFuncName(e.ConstructorName), e.Err)
			return
		}
		Debugf("Provided by %s: %s", shortFuncName(e.ConstructorName), strings.Join(e.OutputTypeNames, ", "))
	case *fxevent.Decorated:
		if e.Err != nil {
			Errorf("Decorator %s failed: %v", shortFuncName(e.DecoratorName), e.Err)
		}
	case *fxevent.Invoking:
		Debugf("Invoking: %s", shortFuncName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke of %s failed: %v", shortFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		Infof("Received %s, shutting down.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Shutdown failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
			return
		}
		Infof("Lighter session service started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("Custom logger initialization failed: %v", e.Err)
			return
		}
		Debugf("Custom logger initialized: %s", shortFuncName(e.ConstructorName))
	}
}

func logHookResult(phase, funcName, runtime string, err error) {
	if err != nil {
		Errorf("%s hook failed: %s: %v", phase, shortFuncName(funcName), err)
		return
	}
	Debugf("%s hook done: %s in %s", phase, shortFuncName(funcName), runtime)
}

// shortFuncName strips the anonymous-closure suffix Fx reports (".func1", ".func2.1")
// and the module path, leaving "package.Function".
func shortFuncName(funcName string) string {
	if idx := strings.Index(funcName, ".func"); idx != -1 {
		funcName = funcName[:idx]
	}
	if idx := strings.LastIndex(funcName, "/"); idx != -1 {
		funcName = funcName[idx+1:]
	}
	return funcName
}
