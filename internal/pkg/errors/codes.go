package errors

import "net/http"

var (
	// ErrFormatInvalid means a feed payload is missing the structural markers
	// of its declared format. Fail-fast: the sync for that source aborts.
	ErrFormatInvalid = New(
		"FORMAT_INVALID",
		"Feed payload is structurally unparseable",
		http.StatusUnprocessableEntity,
	)

	// ErrSourceNotFound means an unknown source id was requested.
	ErrSourceNotFound = New(
		"SOURCE_NOT_FOUND",
		"Unknown sync source",
		http.StatusNotFound,
	)

	// ErrFetchFailed means the external feed endpoint could not be reached or
	// returned a failure. Recorded in the sync result, never thrown past the
	// orchestrator boundary.
	ErrFetchFailed = New(
		"FETCH_FAILED",
		"Feed fetch failed",
		http.StatusBadGateway,
	)

	// ErrStorageFailed means a durable storage operation failed.
	ErrStorageFailed = New(
		"STORAGE_FAILED",
		"Storage operation failed",
		http.StatusInternalServerError,
	)

	// ErrNameConflict means an add or rename collides with an existing place
	// name in the effective view.
	ErrNameConflict = New(
		"NAME_CONFLICT",
		"A place with this name already exists",
		http.StatusConflict,
	)

	ErrPlaceNotFound = New(
		"PLACE_NOT_FOUND",
		"Place not found",
		http.StatusNotFound,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInvalidImportBlob = New(
		"INVALID_IMPORT_BLOB",
		"Edit import blob is not a valid export",
		http.StatusBadRequest,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
