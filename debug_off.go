//go:build !arenadebug

package linarena

const debugEnabled = false
