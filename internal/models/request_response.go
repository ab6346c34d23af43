package models

// Request models
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

type CreateChildRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	DateOfBirth Date   `json:"dateOfBirth" binding:"required"`
}

type RecordVaccinationRequest struct {
	ScheduleID       string  `json:"scheduleId" binding:"required"`
	DateAdministered Date    `json:"dateAdministered" binding:"required"`
	AdministeredBy   *string `json:"administeredBy"`
	Location         *string `json:"location"`
	BatchNumber      *string `json:"batchNumber"`
	Notes            *string `json:"notes"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	AccountID string `json:"accountId,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type ChildResponse struct {
	Status string `json:"status"`
	Child  *Child `json:"child,omitempty"`
	Age    string `json:"age,omitempty"`
}

type ChildListResponse struct {
	Status   string  `json:"status"`
	Children []Child `json:"children"`
}

type CreateChildResponse struct {
	Status   string         `json:"status"`
	Child    *Child         `json:"child,omitempty"`
	Schedule []ScheduleItem `json:"schedule,omitempty"`
}

type ScheduleResponse struct {
	Status string         `json:"status"`
	Items  []ScheduleItem `json:"items"`
}

type VaccinationResponse struct {
	Status string             `json:"status"`
	Record *VaccinationRecord `json:"record,omitempty"`
}

type VaccinationListResponse struct {
	Status  string              `json:"status"`
	Records []VaccinationRecord `json:"records"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
