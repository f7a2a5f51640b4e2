package printing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	calls int
	pdf   []byte
	err   error
}

func (r *stubRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &RenderResult{PDFData: r.pdf, PageCount: 1}, nil
}

func (r *stubRenderer) Close() error { return nil }

func TestDocumentService_InvoicePDF_RendersOnce(t *testing.T) {
	customer := newDocumentCustomer(t)
	inv := newDocumentInvoice(t, customer)

	renderer := &stubRenderer{pdf: []byte("%PDF-1.4 invoice")}
	storage := newTestStorage(t)
	svc := NewDocumentService(renderer, storage, nil)

	ctx := context.Background()

	first, err := svc.InvoicePDF(ctx, inv, customer)
	require.NoError(t, err)
	assert.Equal(t, renderer.pdf, first)
	assert.Equal(t, 1, renderer.calls)

	// Second access is served from the archive
	second, err := svc.InvoicePDF(ctx, inv, customer)
	require.NoError(t, err)
	assert.Equal(t, renderer.pdf, second)
	assert.Equal(t, 1, renderer.calls)

	exists, err := storage.Exists(ctx, "invoices/2026/2608001.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDocumentService_InvoicePDF_RenderFailure(t *testing.T) {
	customer := newDocumentCustomer(t)
	inv := newDocumentInvoice(t, customer)

	renderer := &stubRenderer{err: NewRenderError(ErrCodeRenderFailed, "boom", nil)}
	svc := NewDocumentService(renderer, newTestStorage(t), nil)

	_, err := svc.InvoicePDF(context.Background(), inv, customer)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeRenderFailed, renderErr.Code)
}
