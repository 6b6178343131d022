package site

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/models"
)

type InvoiceServiceMock struct {
	mock.Mock
}

func (m *InvoiceServiceMock) PendingInvoice(ctx context.Context, operatorID string) (*models.PendingInvoiceView, error) {
	args := m.Called(ctx, operatorID)
	view, _ := args.Get(0).(*models.PendingInvoiceView)
	return view, args.Error(1)
}

func (m *InvoiceServiceMock) SubmitSubscriptionProof(ctx context.Context, operatorID string, u models.Upload) (string, error) {
	args := m.Called(ctx, operatorID, u)
	return args.String(0), args.Error(1)
}

func multipartImage(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="proof.png"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestSubmitProofHandler_ServeHTTP(t *testing.T) {
	imageBytes := bytes.Repeat([]byte{0xFF}, 64)

	serviceMock := new(InvoiceServiceMock)
	serviceMock.On("SubmitSubscriptionProof", mock.Anything, "op-1", models.Upload{
		Data:        imageBytes,
		ContentType: "image/png",
		Filename:    "proof.png",
	}).Return("proof-1", nil).Once()

	handler := NewSubmitProof(newNoopLogger(), serviceMock)

	body, contentType := multipartImage(t, "image", "image/png", imageBytes)
	req := httptest.NewRequest(http.MethodPost, "/site/invoice/proof", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middlewarectx.WithPrincipal(req.Context(),
		&models.Principal{ID: "op-1", Role: models.RoleOperator}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	serviceMock.AssertExpectations(t)
}

func TestSubmitProofHandler_MissingFile(t *testing.T) {
	serviceMock := new(InvoiceServiceMock)
	handler := NewSubmitProof(newNoopLogger(), serviceMock)

	body, contentType := multipartImage(t, "wrongfield", "image/png", []byte{0x01})
	req := httptest.NewRequest(http.MethodPost, "/site/invoice/proof", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middlewarectx.WithPrincipal(req.Context(),
		&models.Principal{ID: "op-1", Role: models.RoleOperator}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	serviceMock.AssertNotCalled(t, "SubmitSubscriptionProof", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_ServeHTTP(t *testing.T) {
	serviceMock := new(InvoiceServiceMock)
	serviceMock.On("PendingInvoice", mock.Anything, "op-1").
		Return(&models.PendingInvoiceView{
			HasPending:        true,
			InvoiceID:         "inv-1",
			Amount:            10000,
			PlatformBankAlias: "superadmin.alias.mp",
		}, nil).Once()

	handler := NewInvoice(newNoopLogger(), serviceMock)

	req := httptest.NewRequest(http.MethodGet, "/site/invoice", nil)
	req = req.WithContext(middlewarectx.WithPrincipal(req.Context(),
		&models.Principal{ID: "op-1", Role: models.RoleOperator}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	serviceMock.AssertExpectations(t)
}
