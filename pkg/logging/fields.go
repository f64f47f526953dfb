package logging

import "time"

// Field is a structured key/value attached to an entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field           { return Field{Key: key, Value: value} }
func Int(key string, value int) Field          { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field  { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field        { return Field{Key: key, Value: value} }
func Any(key string, value any) Field          { return Field{Key: key, Value: value} }
func Strings(key string, value []string) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error records err under "error". A nil error is recorded as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Component(name string) Field   { return String("component", name) }
func Operation(op string) Field     { return String("operation", op) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
func Count(n int) Field             { return Int("count", n) }

// Domain fields.

func SceneID(id string) Field    { return String("scene_id", id) }
func NodeID(id string) Field     { return String("node_id", id) }
func EdgeID(id string) Field     { return String("edge_id", id) }
func NodeType(t string) Field    { return String("node_type", t) }
func Face(face string) Field     { return String("face", face) }
func MaterialID(id string) Field { return String("material_id", id) }
func RunID(id string) Field      { return String("run_id", id) }
func RequestID(id string) Field  { return String("request_id", id) }
