package tileset

import "fmt"

// Returned by Create when the root payload or the build parameters are unusable.
// Nothing in the scene has been modified when this error is returned.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Err.Error()
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// A payload no longer holds exactly one material with exactly one texture node
type InvalidPayloadStateError struct {
	Tile         string
	Materials    int
	TextureNodes int
}

func (e *InvalidPayloadStateError) Error() string {
	return fmt.Sprintf("tile %s: invalid payload state: %d materials, %d texture nodes (want 1 and 1)",
		e.Tile, e.Materials, e.TextureNodes)
}

// A scene operation failed while processing a tile
type BackendOperationError struct {
	Tile string
	Op   string
	Err  error
}

func (e *BackendOperationError) Error() string {
	return fmt.Sprintf("tile %s: %s: %v", e.Tile, e.Op, e.Err)
}

func (e *BackendOperationError) Unwrap() error {
	return e.Err
}

func backendError(tile, op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendOperationError{Tile: tile, Op: op, Err: err}
}
