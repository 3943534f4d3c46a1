package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutPath(t *testing.T) {
	assert.Equal(t, "", outPath("", 0, 3))
	assert.Equal(t, "normalized.png", outPath("normalized.png", 0, 1))
	assert.Equal(t, "normalized-1.png", outPath("normalized.png", 0, 2))
	assert.Equal(t, "/tmp/out/n-3.jpg", outPath("/tmp/out/n.jpg", 2, 3))
	assert.Equal(t, "norm-2", outPath("norm", 1, 2))
}

func TestCheckArgs(t *testing.T) {
	assert.NoError(t, checkArgs("", 1, 1))
	assert.NoError(t, checkArgs(":18080", 0, 0))
	assert.Error(t, checkArgs("", 0, 1))
	assert.Error(t, checkArgs("", 1, -0.5))
	assert.Error(t, checkArgs("", 1, 101))
	assert.Error(t, checkArgs("", 1, math.NaN()))
}
