package errors

// ErrorCode identifies a class of application error
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_ALREADY_EXISTS

	// Ingestion / buffer
	ErrorCode_MALFORMED_UTTERANCE
	ErrorCode_SESSION_ENDED
	ErrorCode_BUFFER_FLUSH_FAILED

	// Translation
	ErrorCode_TRANSLATION_FAILED
	ErrorCode_TRANSLATION_PROVIDER_UNAVAILABLE

	// Integrations
	ErrorCode_PUSH_DELIVERY_FAILED
	ErrorCode_DB_QUERY_FAILED
	ErrorCode_CACHE_FAILED
	ErrorCode_STORAGE_FAILED
	ErrorCode_STT_STREAM_FAILED
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                          "UNKNOWN",
	ErrorCode_INTERNAL:                         "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:                 "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                        "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:                   "ALREADY_EXISTS",
	ErrorCode_MALFORMED_UTTERANCE:              "MALFORMED_UTTERANCE",
	ErrorCode_SESSION_ENDED:                    "SESSION_ENDED",
	ErrorCode_BUFFER_FLUSH_FAILED:              "BUFFER_FLUSH_FAILED",
	ErrorCode_TRANSLATION_FAILED:               "TRANSLATION_FAILED",
	ErrorCode_TRANSLATION_PROVIDER_UNAVAILABLE: "TRANSLATION_PROVIDER_UNAVAILABLE",
	ErrorCode_PUSH_DELIVERY_FAILED:             "PUSH_DELIVERY_FAILED",
	ErrorCode_DB_QUERY_FAILED:                  "DB_QUERY_FAILED",
	ErrorCode_CACHE_FAILED:                     "CACHE_FAILED",
	ErrorCode_STORAGE_FAILED:                   "STORAGE_FAILED",
	ErrorCode_STT_STREAM_FAILED:                "STT_STREAM_FAILED",
}

// String returns the name of the error code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
