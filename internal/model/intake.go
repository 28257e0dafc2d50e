package model

// Intake is the batch-mode input artifact: a pre-recorded complaint
// submission that seeds the extracted fields so the collector can skip
// questions the customer already answered.
type Intake struct {
	CustomerInfo struct {
		Name  string `json:"name" yaml:"name"`
		Phone string `json:"phone" yaml:"phone"`
		Email string `json:"email" yaml:"email"`
	} `json:"customer_info" yaml:"customer_info"`
	ComplaintDetails struct {
		Description  string `json:"description" yaml:"description"`
		Category     string `json:"category" yaml:"category"`
		UrgencyLevel string `json:"urgency_level" yaml:"urgency_level"`
		OrderID      string `json:"order_id" yaml:"order_id"`
		ProductName  string `json:"product_name" yaml:"product_name"`
	} `json:"complaint_details" yaml:"complaint_details"`
	CompanyInfo struct {
		CompanyName string `json:"company_name" yaml:"company_name"`
	} `json:"company_info" yaml:"company_info"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Fields flattens the intake into extracted-field form. Email wins over
// phone as the primary contact when both are present.
func (in *Intake) Fields() map[string]string {
	f := map[string]string{
		FieldName:        in.CustomerInfo.Name,
		FieldDescription: in.ComplaintDetails.Description,
		FieldCategory:    in.ComplaintDetails.Category,
		FieldUrgency:     in.ComplaintDetails.UrgencyLevel,
		FieldOrderID:     in.ComplaintDetails.OrderID,
		FieldProduct:     in.ComplaintDetails.ProductName,
		FieldCompany:     in.CompanyInfo.CompanyName,
	}
	switch {
	case in.CustomerInfo.Email != "":
		f[FieldContact] = in.CustomerInfo.Email
	case in.CustomerInfo.Phone != "":
		f[FieldContact] = in.CustomerInfo.Phone
	}
	for k, v := range f {
		if v == "" {
			delete(f, k)
		}
	}
	return f
}
