package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordImage(t *testing.T) {
	okBefore := testutil.ToFloat64(ImageFetches.WithLabelValues("covers", "ok"))
	errBefore := testutil.ToFloat64(ImageFetches.WithLabelValues("screenshots", "error"))

	RecordImage("covers", nil)
	RecordImage("screenshots", errors.New("404"))
	RecordImage("screenshots", errors.New("decode"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ImageFetches.WithLabelValues("covers", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(ImageFetches.WithLabelValues("screenshots", "error")))
}

func TestRecordCatalog(t *testing.T) {
	before := testutil.ToFloat64(CatalogRequests.WithLabelValues("search", "ok"))

	RecordCatalog("search", "ok", time.Now().Add(-time.Second))

	assert.Equal(t, before+1, testutil.ToFloat64(CatalogRequests.WithLabelValues("search", "ok")))
}
