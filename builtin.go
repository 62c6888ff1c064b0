package frameio

// Built-in formats self-register from their package init functions;
// importing the public package is what pulls them in.
import (
	_ "github.com/mferrell/frameio/internal/fcf"
	_ "github.com/mferrell/frameio/internal/pgm"
	_ "github.com/mferrell/frameio/internal/rawblob"
)
