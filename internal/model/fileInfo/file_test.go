package fileInfo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"project-submission/internal/model/fileInfo"
)

func TestKey(t *testing.T) {
	k := fileInfo.Key("/srv/uploads/report.pdf")

	assert.Len(t, k, 32)
	assert.Equal(t, k, fileInfo.Key("/srv/uploads/report.pdf"))
	assert.NotEqual(t, k, fileInfo.Key("/srv/uploads/report-1.pdf"))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", fileInfo.Key(""))
}
