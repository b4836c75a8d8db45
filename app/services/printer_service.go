package services

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"MesaApp/app/models"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// ESC/POS control sequences
var (
	escInit       = []byte{0x1B, 0x40}
	escAlignLeft  = []byte{0x1B, 0x61, 0x00}
	escAlignMid   = []byte{0x1B, 0x61, 0x01}
	escAlignRight = []byte{0x1B, 0x61, 0x02}
	escBoldOn     = []byte{0x1B, 0x45, 0x01}
	escBoldOff    = []byte{0x1B, 0x45, 0x00}
	escDoubleOn   = []byte{0x1D, 0x21, 0x11}
	escDoubleOff  = []byte{0x1D, 0x21, 0x00}
	escCut        = []byte{0x1D, 0x56, 0x42, 0x00}
	escDrawer     = []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}
)

// PrinterService renders tickets and comandas to ESC/POS thermal printers
type PrinterService struct {
	*BaseService
	logger *LoggerService
}

// NewPrinterService creates a new printer service
func NewPrinterService(logger *LoggerService) *PrinterService {
	return &PrinterService{
		BaseService: NewBaseService(),
		logger:      logger,
	}
}

// lineWidth returns the character width for the configured paper
func lineWidth(p *models.PrinterConfig) int {
	if p.PaperWidth <= 58 {
		return 32
	}
	return 48
}

// printerForRole returns the default active printer for a role
func (s *PrinterService) printerForRole(role string) (*models.PrinterConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var printer models.PrinterConfig
	err := s.db.Where("role = ? AND is_active = ?", role, true).
		Order("is_default DESC, id ASC").First(&printer).Error
	if err != nil {
		return nil, fmt.Errorf("no %s printer configured: %w", role, err)
	}
	return &printer, nil
}

// PrintKitchenTicket sends a comanda with the unsent items to the kitchen
// printer. Quantities and notes only, never prices.
func (s *PrinterService) PrintKitchenTicket(order *models.Order, tableNumber string) error {
	printer, err := s.printerForRole("kitchen")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Write(escInit)
	buf.Write(escAlignMid)
	buf.Write(escDoubleOn)
	buf.WriteString("COMANDA\n")
	buf.Write(escDoubleOff)
	buf.WriteString(order.OrderNumber + "\n")
	if tableNumber != "" {
		buf.Write(escBoldOn)
		buf.WriteString("Mesa " + tableNumber + "\n")
		buf.Write(escBoldOff)
	}
	buf.WriteString(time.Now().Format("02/01/2006 15:04") + "\n")
	buf.Write(escAlignLeft)
	buf.WriteString(strings.Repeat("-", lineWidth(printer)) + "\n")

	printed := 0
	for _, item := range order.Items {
		if item.SentToKitchen {
			continue
		}
		buf.Write(escBoldOn)
		buf.WriteString(fmt.Sprintf("%d x %s\n", item.Quantity, item.Name))
		buf.Write(escBoldOff)
		if item.Notes != "" {
			buf.WriteString("   >> " + item.Notes + "\n")
		}
		printed++
	}
	if printed == 0 {
		return nil // nothing new for the kitchen
	}

	if order.Waiter != nil {
		buf.WriteString(strings.Repeat("-", lineWidth(printer)) + "\n")
		buf.WriteString("Mozo: " + order.Waiter.Name + "\n")
	}
	buf.WriteString("\n\n")
	if printer.AutoCut {
		buf.Write(escCut)
	}

	return s.send(printer, buf.Bytes())
}

// PrintReceipt prints the fiscal ticket for a sale: business header,
// comprobante identification, items, totals and the AFIP QR with the CAE.
func (s *PrinterService) PrintReceipt(sale *models.Sale, invoice *models.ElectronicInvoice) error {
	printer, err := s.printerForRole("front")
	if err != nil {
		return err
	}

	var restaurant models.RestaurantConfig
	if err := s.db.First(&restaurant).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load restaurant config: %w", err)
	}

	var order models.Order
	if err := s.db.Preload("Items").First(&order, sale.OrderID).Error; err != nil {
		return fmt.Errorf("failed to load order for sale %s: %w", sale.SaleNumber, err)
	}

	width := lineWidth(printer)
	var buf bytes.Buffer
	buf.Write(escInit)

	// Header
	buf.Write(escAlignMid)
	buf.Write(escBoldOn)
	buf.WriteString(restaurant.Name + "\n")
	buf.Write(escBoldOff)
	if restaurant.LegalName != "" {
		buf.WriteString(restaurant.LegalName + "\n")
	}
	if restaurant.CUIT != "" {
		buf.WriteString("CUIT: " + restaurant.CUIT + "\n")
	}
	if restaurant.GrossIncome != "" {
		buf.WriteString("IIBB: " + restaurant.GrossIncome + "\n")
	}
	if restaurant.Address != "" {
		buf.WriteString(restaurant.Address + "\n")
	}

	// Comprobante identification
	buf.WriteString(strings.Repeat("=", width) + "\n")
	if invoice != nil && invoice.Status == models.InvoiceAuthorized {
		buf.Write(escDoubleOn)
		buf.WriteString("FACTURA " + invoice.InvoiceType + "\n")
		buf.Write(escDoubleOff)
		buf.WriteString(fmt.Sprintf("P.V. %04d  Nro %08d\n", invoice.PointOfSale, invoice.InvoiceNumber))
	} else {
		buf.Write(escDoubleOn)
		buf.WriteString("TICKET NO FISCAL\n")
		buf.Write(escDoubleOff)
	}
	buf.WriteString(sale.SaleNumber + "\n")
	buf.WriteString(time.Now().Format("02/01/2006 15:04") + "\n")
	buf.Write(escAlignLeft)
	buf.WriteString(strings.Repeat("-", width) + "\n")

	// Items
	for _, item := range order.Items {
		name := item.Name
		price := fmt.Sprintf("%10.2f", item.Subtotal)
		qty := fmt.Sprintf("%d x ", item.Quantity)
		maxName := width - len(price) - len(qty)
		if len(name) > maxName {
			name = name[:maxName]
		}
		pad := width - len(qty) - len(name) - len(price)
		buf.WriteString(qty + name + strings.Repeat(" ", pad) + price + "\n")
	}

	// Totals
	buf.WriteString(strings.Repeat("-", width) + "\n")
	buf.Write(escAlignRight)
	buf.WriteString(fmt.Sprintf("Subtotal: %10.2f\n", sale.Subtotal))
	if sale.Discount > 0 {
		buf.WriteString(fmt.Sprintf("Descuento: %10.2f\n", -sale.Discount))
	}
	if sale.Tax > 0 {
		buf.WriteString(fmt.Sprintf("IVA %.0f%%: %10.2f\n", restaurant.DefaultTaxRate, sale.Tax))
	}
	buf.Write(escBoldOn)
	buf.Write(escDoubleOn)
	buf.WriteString(fmt.Sprintf("TOTAL: %10.2f\n", sale.Total))
	buf.Write(escDoubleOff)
	buf.Write(escBoldOff)

	// CAE block and fiscal QR
	if invoice != nil && invoice.Status == models.InvoiceAuthorized {
		buf.Write(escAlignMid)
		buf.WriteString("\nCAE: " + invoice.CAE + "\n")
		if invoice.CAEDueDate != nil {
			buf.WriteString("Vto CAE: " + invoice.CAEDueDate.Format("02/01/2006") + "\n")
		}
		if invoice.QRData != "" {
			if qr, err := s.qrRaster(invoice.QRData); err == nil {
				buf.Write(qr)
			} else {
				s.logger.LogWarning("Could not render fiscal QR", err.Error())
			}
		}
	}

	buf.Write(escAlignMid)
	buf.WriteString("\nGracias por su visita\n\n\n")

	if printer.CashDrawer {
		buf.Write(escDrawer)
	}
	if printer.AutoCut {
		buf.Write(escCut)
	}

	return s.send(printer, buf.Bytes())
}

// PrintRegisterReport prints the close-of-session report: balances, the
// movement totals by type and the counted difference.
func (s *PrinterService) PrintRegisterReport(register *models.CashRegister, summary map[string]float64) error {
	printer, err := s.printerForRole("front")
	if err != nil {
		return err
	}

	width := lineWidth(printer)
	var buf bytes.Buffer
	buf.Write(escInit)
	buf.Write(escAlignMid)
	buf.Write(escDoubleOn)
	buf.WriteString("CIERRE DE CAJA\n")
	buf.Write(escDoubleOff)
	buf.WriteString(register.OpenedAt.Format("02/01/2006 15:04") + " - ")
	if register.ClosedAt != nil {
		buf.WriteString(register.ClosedAt.Format("15:04"))
	}
	buf.WriteString("\n")
	if register.OpenedBy != nil {
		buf.WriteString("Abierta por: " + register.OpenedBy.Name + "\n")
	}
	buf.Write(escAlignLeft)
	buf.WriteString(strings.Repeat("-", width) + "\n")

	buf.WriteString(fmt.Sprintf("Saldo inicial:   %12.2f\n", register.OpeningBalance))
	buf.WriteString(fmt.Sprintf("Ventas:          %12.2f\n", summary["sale"]))
	buf.WriteString(fmt.Sprintf("Ingresos:        %12.2f\n", summary["deposit"]))
	buf.WriteString(fmt.Sprintf("Retiros:         %12.2f\n", -summary["withdrawal"]))
	buf.WriteString(strings.Repeat("-", width) + "\n")
	buf.WriteString(fmt.Sprintf("Saldo esperado:  %12.2f\n", register.ExpectedBalance))
	buf.WriteString(fmt.Sprintf("Saldo contado:   %12.2f\n", register.ClosingBalance))
	buf.Write(escBoldOn)
	buf.WriteString(fmt.Sprintf("Diferencia:      %12.2f\n", register.Difference))
	buf.Write(escBoldOff)
	if register.Notes != "" {
		buf.WriteString("\n" + register.Notes + "\n")
	}
	buf.WriteString("\n\n")
	if printer.AutoCut {
		buf.Write(escCut)
	}

	return s.send(printer, buf.Bytes())
}

// qrRaster renders a QR code as an ESC/POS raster image (GS v 0)
func (s *PrinterService) qrRaster(content string) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("could not build QR code: %w", err)
	}

	bitmap := qr.Bitmap()
	const scale = 3
	size := len(bitmap) * scale
	widthBytes := (size + 7) / 8

	data := make([]byte, 0, widthBytes*size+8)
	data = append(data, 0x1D, 0x76, 0x30, 0x00,
		byte(widthBytes&0xFF), byte(widthBytes>>8),
		byte(size&0xFF), byte(size>>8))

	for y := 0; y < size; y++ {
		row := make([]byte, widthBytes)
		for x := 0; x < size; x++ {
			if bitmap[y/scale][x/scale] {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		data = append(data, row...)
	}

	return data, nil
}

// send delivers raw bytes to the printer according to its connection type
func (s *PrinterService) send(printer *models.PrinterConfig, data []byte) error {
	switch printer.Type {
	case "network":
		return s.sendNetwork(printer, data)
	case "usb", "serial", "file":
		// USB and serial printers expose a device node writable like a file
		return s.sendFile(printer, data)
	default:
		return fmt.Errorf("unsupported printer type: %s", printer.Type)
	}
}

// sendNetwork writes to a raw TCP printer port (usually 9100)
func (s *PrinterService) sendNetwork(printer *models.PrinterConfig, data []byte) error {
	addr := fmt.Sprintf("%s:%d", printer.Address, printer.Port)
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("could not reach printer %s: %w", printer.Name, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to print on %s: %w", printer.Name, err)
	}

	s.logger.LogInfo("Printed", fmt.Sprintf("%d bytes to %s", len(data), printer.Name))
	return nil
}

// sendFile appends the raw job to a file, used for development
func (s *PrinterService) sendFile(printer *models.PrinterConfig, data []byte) error {
	f, err := os.OpenFile(printer.Address, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("could not open print file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write print file: %w", err)
	}
	return nil
}

// TestPrinter prints a short self-test page
func (s *PrinterService) TestPrinter(printerID uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	var printer models.PrinterConfig
	if err := s.db.First(&printer, printerID).Error; err != nil {
		return fmt.Errorf("printer %d not found: %w", printerID, err)
	}

	var buf bytes.Buffer
	buf.Write(escInit)
	buf.Write(escAlignMid)
	buf.Write(escBoldOn)
	buf.WriteString("MesaApp\n")
	buf.Write(escBoldOff)
	buf.WriteString("Prueba de impresora\n")
	buf.WriteString(printer.Name + "\n")
	buf.WriteString(time.Now().Format("02/01/2006 15:04:05") + "\n\n\n")
	if printer.AutoCut {
		buf.Write(escCut)
	}

	return s.send(&printer, buf.Bytes())
}

// ListPrinters returns the configured printers
func (s *PrinterService) ListPrinters() ([]models.PrinterConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var printers []models.PrinterConfig
	if err := s.db.Order("role, name").Find(&printers).Error; err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	return printers, nil
}

// SavePrinter creates or updates a printer configuration. Marking a printer
// default clears the flag from the other printers of the same role.
func (s *PrinterService) SavePrinter(printer *models.PrinterConfig) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if printer.Name == "" {
		return fmt.Errorf("printer name is required")
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		if printer.IsDefault {
			if err := tx.Model(&models.PrinterConfig{}).
				Where("role = ? AND id <> ?", printer.Role, printer.ID).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to clear default printers: %w", err)
			}
		}
		return tx.Save(printer).Error
	})
}
