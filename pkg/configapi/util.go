package configapi

import (
	"reflect"

	"github.com/google/uuid"
)

// requestID mints a per-request id for cookie-auth requests (§4.4: "a
// per-request request-id").
func requestID() string {
	return uuid.New().String()
}

// itemCountReflect returns len(*out) when out is a pointer to a slice,
// else 0. Response shapes vary per endpoint; most are a bare JSON array
// decoded into a `*[]T`.
func itemCountReflect(out any) int {
	if out == nil {
		return 0
	}
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0
	}
	elem := v.Elem()
	if elem.Kind() == reflect.Slice {
		return elem.Len()
	}
	return 0
}
