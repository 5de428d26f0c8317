package cribl

// Envelope is the result of every client operation. Success is the
// discriminant: Data is meaningful only when Success is true, Error only
// when it is false.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok wraps data in a successful envelope.
func Ok[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Fail wraps a normalized message in a failed envelope.
func Fail[T any](msg string) Envelope[T] {
	return Envelope[T]{Error: msg}
}

// failAs carries a failure over to an envelope of another type.
func failAs[T, U any](env Envelope[U]) Envelope[T] {
	return Fail[T](env.Error)
}
