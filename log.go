// SPDX-License-Identifier: Apache-2.0

package tagpool

// Logger is the logging surface used by the arena. Applications plug in
// their own logger with WithLogger; without one the arena stays silent.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

func (a *Arena) debugf(format string, v ...any) {
	if a.log != nil {
		a.log.Debugf("%s "+format, append([]any{a.name}, v...)...)
	}
}

func (a *Arena) infof(format string, v ...any) {
	if a.log != nil {
		a.log.Infof("%s "+format, append([]any{a.name}, v...)...)
	}
}

func (a *Arena) warnf(format string, v ...any) {
	if a.log != nil {
		a.log.Warnf("%s "+format, append([]any{a.name}, v...)...)
	}
}

func (a *Arena) errorf(format string, v ...any) {
	if a.log != nil {
		a.log.Errorf("%s "+format, append([]any{a.name}, v...)...)
	}
}
