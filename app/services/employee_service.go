package services

import (
	"fmt"
	"time"

	"MesaApp/app/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Session lifetime for waiter devices
const sessionDuration = 12 * time.Hour

// EmployeeService handles staff accounts and PIN authentication
type EmployeeService struct {
	*BaseService
}

// NewEmployeeService creates a new employee service
func NewEmployeeService() *EmployeeService {
	return &EmployeeService{BaseService: NewBaseService()}
}

// CreateEmployee creates a staff member with a hashed PIN
func (s *EmployeeService) CreateEmployee(employee *models.Employee, pin string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	if employee.Name == "" {
		return fmt.Errorf("employee name is required")
	}
	if err := validatePIN(pin); err != nil {
		return err
	}
	switch employee.Role {
	case "waiter", "cashier", "manager":
	default:
		return fmt.Errorf("invalid role: %s", employee.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	employee.PIN = string(hash)

	if err := s.db.Create(employee).Error; err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// validatePIN enforces 4 to 6 digits
func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return fmt.Errorf("PIN must be 4 to 6 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("PIN must contain only digits")
		}
	}
	return nil
}

// Authenticate checks an employee's PIN and opens a session for the device.
// The same generic error covers both unknown employees and wrong PINs.
func (s *EmployeeService) Authenticate(employeeID uint, pin, device string) (*models.Session, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var employee models.Employee
	if err := s.db.Where("id = ? AND is_active = ?", employeeID, true).First(&employee).Error; err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PIN), []byte(pin)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	session := &models.Session{
		EmployeeID: employee.ID,
		Token:      uuid.NewString(),
		Device:     device,
		ExpiresAt:  time.Now().Add(sessionDuration),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Employee = &employee
	return session, nil
}

// ValidateSession returns the employee behind a live session token
func (s *EmployeeService) ValidateSession(token string) (*models.Employee, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var session models.Session
	err := s.db.Where("token = ? AND expires_at > ?", token, time.Now()).
		Preload("Employee").First(&session).Error
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session")
	}
	if session.Employee == nil || !session.Employee.IsActive {
		return nil, fmt.Errorf("invalid or expired session")
	}
	return session.Employee, nil
}

// Logout removes a session
func (s *EmployeeService) Logout(token string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	return s.db.Where("token = ?", token).Delete(&models.Session{}).Error
}

// ChangePIN replaces an employee's PIN after verifying the current one
func (s *EmployeeService) ChangePIN(employeeID uint, currentPIN, newPIN string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if err := validatePIN(newPIN); err != nil {
		return err
	}

	var employee models.Employee
	if err := s.db.First(&employee, employeeID).Error; err != nil {
		return fmt.Errorf("employee %d not found: %w", employeeID, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PIN), []byte(currentPIN)); err != nil {
		return fmt.Errorf("invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Model(&employee).Update("pin", string(hash)).Error; err != nil {
			return fmt.Errorf("failed to update PIN: %w", err)
		}
		// Changing the PIN invalidates every open session
		return tx.Where("employee_id = ?", employeeID).Delete(&models.Session{}).Error
	})
}

// ListEmployees returns the active staff of a branch
func (s *EmployeeService) ListEmployees(branchID uint) ([]models.Employee, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var employees []models.Employee
	err := s.db.Where("branch_id = ? AND is_active = ?", branchID, true).
		Order("name").Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

// DeactivateEmployee disables an account and closes its sessions
func (s *EmployeeService) DeactivateEmployee(id uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Employee{}).Where("id = ?", id).Update("is_active", false)
		if result.Error != nil {
			return fmt.Errorf("failed to deactivate employee %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("employee %d not found", id)
		}
		return tx.Where("employee_id = ?", id).Delete(&models.Session{}).Error
	})
}

// CleanExpiredSessions removes sessions past their expiry
func (s *EmployeeService) CleanExpiredSessions() error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.Session{}).Error
}
