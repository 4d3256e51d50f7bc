package prompt

import "errors"

// ErrUnexpectedModel is an error that occurs when a finished [tea.Program]
// returns a model of an unexpected type.
var ErrUnexpectedModel = errors.New("unexpected final model")
