// Package cerr builds errors that carry structured log fields, so the place
// that finally logs an error can emit every field attached along the way.
package cerr

import (
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

type F = map[string]any

type Context struct {
	fields log.Fields
}

func Field(key string, value any) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(err error) Wrapper {
	return Context{}.Wrap(err)
}

func Error(msg string) error {
	return Context{}.errorWithDepth(1, msg)
}

func (c Context) Field(key string, value any) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := make(log.Fields, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return Context{fields: merged}
}

func (c Context) Wrap(err error) Wrapper {
	return Wrapper{ctx: c, cause: err}
}

func (c Context) Error(msg string) error {
	return c.errorWithDepth(1, msg)
}

func (c Context) errorWithDepth(depth int, msg string) error {
	return &fieldError{
		fields: c.fields,
		cause:  errors.NewWithDepth(depth+1, msg),
	}
}

type Wrapper struct {
	ctx   Context
	cause error
}

func (w Wrapper) Error(msg string) error {
	return &fieldError{
		fields: w.ctx.fields,
		cause:  errors.WrapWithDepth(1, w.cause, msg),
	}
}

type fieldError struct {
	fields log.Fields
	cause  error
}

func (f *fieldError) Error() string { return f.cause.Error() }
func (f *fieldError) Unwrap() error { return f.cause }

// CollectFields gathers the fields of every layer in the chain. When two
// layers set the same key, the outer one wins.
func CollectFields(err error) log.Fields {
	fields := log.Fields{}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		fe, ok := e.(*fieldError)
		if !ok {
			continue
		}

		for k, v := range fe.fields {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}

	return fields
}

func Log(err error) {
	if err == nil {
		return
	}

	log.WithFields(CollectFields(err)).
		WithError(err).
		Error("Error occurred")
}
