package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"MesaApp/app/database"
	"MesaApp/app/models"

	"gorm.io/gorm"
)

// afipQRBase is the URL prefix mandated for the fiscal QR on printed tickets
const afipQRBase = "https://www.afip.gob.ar/fe/qr/?p="

// AfipService requests electronic invoices (comprobantes) through the ARCA
// bridge. The bridge owns the fiscal certificates and the WSFE SOAP exchange;
// this service only speaks JSON over HTTP to it and records the outcome.
type AfipService struct {
	*BaseService
	localDB *database.LocalDB
	client  *http.Client
	logger  *LoggerService
}

// NewAfipService creates a new AFIP service
func NewAfipService(logger *LoggerService) *AfipService {
	return &AfipService{
		BaseService: NewBaseService(),
		localDB:     database.GetLocalDB(),
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// bridgeInvoiceRequest is the payload sent to the ARCA bridge
type bridgeInvoiceRequest struct {
	PointOfSale int     `json:"point_of_sale"`
	InvoiceType string  `json:"invoice_type"`
	SaleNumber  string  `json:"sale_number"`
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
	TestMode    bool    `json:"test_mode"`
}

// bridgeInvoiceResponse is the bridge's answer once AFIP authorizes
type bridgeInvoiceResponse struct {
	InvoiceNumber int64  `json:"invoice_number"`
	CAE           string `json:"cae"`
	CAEDueDate    string `json:"cae_due_date"` // "2006-01-02"
	Status        string `json:"status"`
	Message       string `json:"message"`
	Raw           json.RawMessage
}

// GetConfig loads the invoicing settings row
func (s *AfipService) GetConfig() (*models.AfipConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var cfg models.AfipConfig
	if err := s.db.First(&cfg).Error; err != nil {
		return nil, fmt.Errorf("afip config not found: %w", err)
	}
	return &cfg, nil
}

// SaveConfig persists the invoicing settings
func (s *AfipService) SaveConfig(cfg *models.AfipConfig) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	return s.db.Save(cfg).Error
}

// RequestInvoice asks the bridge for a comprobante for the sale. On success
// the authorized invoice, its CAE and the ticket QR URL are stored. If the
// bridge is unreachable the invoice is stored as pending and queued locally
// so the retry worker can resubmit it.
func (s *AfipService) RequestInvoice(sale *models.Sale) (*models.ElectronicInvoice, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	cfg, err := s.GetConfig()
	if err != nil {
		return nil, err
	}
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("invoicing bridge is not configured")
	}

	invoice := &models.ElectronicInvoice{
		SaleID:      sale.ID,
		PointOfSale: cfg.PointOfSale,
		InvoiceType: cfg.DefaultInvoiceType,
		Status:      models.InvoicePending,
	}

	resp, err := s.submit(cfg, sale)
	if err != nil {
		s.logger.LogWarning("Invoice submission failed, queuing for retry", err.Error())
		if dbErr := s.db.Create(invoice).Error; dbErr != nil {
			return nil, fmt.Errorf("failed to store pending invoice: %w", dbErr)
		}
		s.queueInvoice(sale, invoice)
		return invoice, nil
	}

	s.applyResponse(invoice, resp, cfg)
	if err := s.db.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to store invoice: %w", err)
	}

	return invoice, nil
}

// submit posts one invoice request to the bridge
func (s *AfipService) submit(cfg *models.AfipConfig, sale *models.Sale) (*bridgeInvoiceResponse, error) {
	payload := bridgeInvoiceRequest{
		PointOfSale: cfg.PointOfSale,
		InvoiceType: cfg.DefaultInvoiceType,
		SaleNumber:  sale.SaleNumber,
		Subtotal:    sale.Subtotal,
		Tax:         sale.Tax,
		Total:       sale.Total,
		TestMode:    cfg.TestMode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode invoice request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, cfg.BridgeURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.BridgeToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.BridgeToken)
	}

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read bridge response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge returned status %d: %s", httpResp.StatusCode, string(raw))
	}

	var resp bridgeInvoiceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("could not parse bridge response: %w", err)
	}
	resp.Raw = raw

	return &resp, nil
}

// applyResponse copies the bridge outcome onto the invoice and builds the QR
func (s *AfipService) applyResponse(invoice *models.ElectronicInvoice, resp *bridgeInvoiceResponse, cfg *models.AfipConfig) {
	invoice.InvoiceNumber = resp.InvoiceNumber
	invoice.CAE = resp.CAE
	invoice.ArcaResponse = string(resp.Raw)

	if due, err := time.Parse("2006-01-02", resp.CAEDueDate); err == nil {
		invoice.CAEDueDate = &due
	}

	if resp.Status == "authorized" && resp.CAE != "" {
		invoice.Status = models.InvoiceAuthorized
		invoice.QRData = s.buildQRURL(invoice, cfg)
	} else {
		invoice.Status = models.InvoiceRejected
		s.logger.LogWarning("Invoice rejected by AFIP", resp.Message)
	}
}

// buildQRURL assembles the AFIP QR payload: a base64 JSON document appended
// to the fixed afip.gob.ar URL, as required on every printed comprobante.
func (s *AfipService) buildQRURL(invoice *models.ElectronicInvoice, cfg *models.AfipConfig) string {
	var restaurant models.RestaurantConfig
	s.db.First(&restaurant)

	cuit, _ := strconv.ParseInt(digitsOnly(restaurant.CUIT), 10, 64)

	var sale models.Sale
	s.db.First(&sale, invoice.SaleID)

	payload := map[string]interface{}{
		"ver":        1,
		"fecha":      time.Now().Format("2006-01-02"),
		"cuit":       cuit,
		"ptoVta":     invoice.PointOfSale,
		"tipoCmp":    invoiceTypeCode(invoice.InvoiceType),
		"nroCmp":     invoice.InvoiceNumber,
		"importe":    sale.Total,
		"moneda":     "PES",
		"ctz":        1,
		"tipoCodAut": "E",
		"codAut":     invoice.CAE,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return afipQRBase + base64.StdEncoding.EncodeToString(data)
}

// invoiceTypeCode maps letter invoice types to AFIP comprobante codes
func invoiceTypeCode(invoiceType string) int {
	switch invoiceType {
	case "A":
		return 1
	case "B":
		return 6
	case "C":
		return 11
	}
	return 6
}

// digitsOnly strips separators from a CUIT ("30-71234567-8")
func digitsOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}

// queueInvoice records a failed submission in the offline queue
func (s *AfipService) queueInvoice(sale *models.Sale, invoice *models.ElectronicInvoice) {
	data, err := json.Marshal(map[string]interface{}{
		"sale_id":    sale.ID,
		"invoice_id": invoice.ID,
	})
	if err != nil {
		return
	}
	if err := s.localDB.QueueInvoice(sale.SaleNumber, string(data)); err != nil {
		s.logger.LogError("Failed to queue invoice locally", err, sale.SaleNumber)
	}
}

// RetryPendingInvoices resubmits pending invoices to the bridge. Called
// periodically by the worker started in main.
func (s *AfipService) RetryPendingInvoices() {
	if err := s.EnsureDB(); err != nil {
		return
	}

	cfg, err := s.GetConfig()
	if err != nil || cfg.BridgeURL == "" {
		return
	}

	var pending []models.ElectronicInvoice
	err = s.db.Where("status = ?", models.InvoicePending).
		Order("created_at").Limit(20).Find(&pending).Error
	if err != nil {
		s.logger.LogError("Failed to load pending invoices", err)
		return
	}

	for i := range pending {
		invoice := &pending[i]

		var sale models.Sale
		if err := s.db.First(&sale, invoice.SaleID).Error; err != nil {
			s.logger.LogWarning("Pending invoice has no sale", fmt.Sprintf("invoice %d", invoice.ID))
			continue
		}

		resp, err := s.submit(cfg, &sale)
		if err != nil {
			s.logger.LogWarning("Invoice retry failed", err.Error())
			return // bridge still down, try again next tick
		}

		s.applyResponse(invoice, resp, cfg)
		if err := s.db.Save(invoice).Error; err != nil {
			s.logger.LogError("Failed to update invoice after retry", err)
			continue
		}
		if invoice.Status == models.InvoiceAuthorized {
			s.localDB.MarkInvoiceSynced(sale.SaleNumber)
			s.localDB.LogSync("invoice", invoice.ID, "update", "success", "")
		}
	}
}

// StartRetryWorker launches the periodic resubmission loop
func (s *AfipService) StartRetryWorker(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	go func() {
		defer s.logger.RecoverPanic()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RetryPendingInvoices()
			case <-stop:
				return
			}
		}
	}()
}

// GetInvoiceForSale returns the invoice linked to a sale, if any
func (s *AfipService) GetInvoiceForSale(saleID uint) (*models.ElectronicInvoice, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var invoice models.ElectronicInvoice
	err := s.db.Where("sale_id = ?", saleID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice for sale %d: %w", saleID, err)
	}
	return &invoice, nil
}
