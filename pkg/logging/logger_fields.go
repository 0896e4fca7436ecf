package logging

import (
	"time"
)

// Common field constructors

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Latency records an operation duration under the "latency" key
func Latency(value time.Duration) Field {
	return Field{Key: "latency", Value: value.String()}
}

// Error records an error under the "error" key
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain-specific field constructors

// Jurisdiction records the regulatory jurisdiction an operation targets
func Jurisdiction(name string) Field {
	return Field{Key: "jurisdiction", Value: name}
}

// Chunk records the protocol chunk index an operation processes
func Chunk(index int) Field {
	return Field{Key: "chunk", Value: index}
}

// Regulation records a requirement node id
func Regulation(id string) Field {
	return Field{Key: "regulation", Value: id}
}
