package models

// CompanyInfo is the issuing company shown in the invoice "From" block.
// Every field is optional.
type CompanyInfo struct {
	CompanyName   string `json:"company_name,omitempty"`
	CompanyNumber string `json:"company_number,omitempty"`
	CEOEmail      string `json:"ceo_email,omitempty"`
	// CompanyLogo is a data URI, URL, local path or drive:<fileID> reference
	CompanyLogo string `json:"company_logo,omitempty"`
}

// IsEmpty reports whether no field is set
func (c *CompanyInfo) IsEmpty() bool {
	return c == nil || (c.CompanyName == "" && c.CompanyNumber == "" && c.CEOEmail == "" && c.CompanyLogo == "")
}
