package linarena

const (
	// AllocPattern fills freshly allocated bytes in debug builds.
	AllocPattern byte = 0xAD
	// ResetPattern fills bytes discarded by Reset or Rewind in debug builds.
	ResetPattern byte = 0xDE
)

// Debug reports whether the package was built with the arenadebug tag.
func Debug() bool {
	return debugEnabled
}

// poison overwrites b with v. It compiles to nothing without arenadebug.
func poison(b []byte, v byte) {
	if !debugEnabled {
		return
	}
	for i := range b {
		b[i] = v
	}
}
