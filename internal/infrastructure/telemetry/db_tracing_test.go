package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, RegisterDBTracing(db, DefaultDBTracingConfig(), zap.NewNop()))
	assert.Nil(t, db.Callback().Query().Get("ledger_trace:after_query"))
}

func TestRegisterDBTracing_EmitsSpans(t *testing.T) {
	tp, recorder := setupRecorder(t)
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop()))
	assert.NotNil(t, db.Callback().Query().Get("ledger_trace:after_query"))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)

	assert.NotEmpty(t, recorder.Ended())
}

func TestSpanAnnotator_MarksSlowQueryAndTable(t *testing.T) {
	tp, recorder := setupRecorder(t)
	db := setupTestDB(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))

	var rows []tracedRow
	result := db.WithContext(ctx).Find(&rows)
	require.NoError(t, result.Error)

	(&spanAnnotator{threshold: time.Millisecond}).after(result)
	span.End()

	require.Len(t, recorder.Ended(), 1)
	attrs := attrMap(recorder.Ended()[0].Attributes())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, "traced_rows", attrs["db.sql.table"].AsString())
}

func TestSpanAnnotator_RecordsErrorsButNotNotFound(t *testing.T) {
	tp, recorder := setupRecorder(t)
	db := setupTestDB(t)
	annotate := &spanAnnotator{}

	ctx, failing := tp.Tracer("test").Start(context.Background(), "failing")
	tx := db.WithContext(ctx).Session(&gorm.Session{})
	_ = tx.AddError(errors.New("boom"))
	annotate.after(tx)
	failing.End()

	ctx, missing := tp.Tracer("test").Start(context.Background(), "missing")
	var row tracedRow
	result := db.WithContext(ctx).First(&row)
	require.ErrorIs(t, result.Error, gorm.ErrRecordNotFound)
	annotate.after(result)
	missing.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}
