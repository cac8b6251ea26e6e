package model

import (
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/shopspring/decimal"
)

// PersonalInfo 申请人个人信息
// 提交后不可变,草稿阶段允许部分填写
type PersonalInfo struct {
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	IDNumber    string `json:"id_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Employment 雇佣信息
type Employment struct {
	EmployerName  string           `json:"employer_name,omitempty"`
	JobTitle      string           `json:"job_title,omitempty"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty"`
	YearsEmployed int              `json:"years_employed,omitempty"`
}

// RentDetails 租房贷款专属字段
type RentDetails struct {
	LandlordName    string           `json:"landlord_name,omitempty"`
	LandlordContact string           `json:"landlord_contact,omitempty"`
	PropertyAddress string           `json:"property_address,omitempty"`
	MonthlyRent     *decimal.Decimal `json:"monthly_rent,omitempty"`
}

// LandDetails 土地贷款专属字段
type LandDetails struct {
	DeveloperName    string `json:"developer_name,omitempty"`
	DeveloperContact string `json:"developer_contact,omitempty"`
	PlotNumber       string `json:"plot_number,omitempty"`
	PlotLocation     string `json:"plot_location,omitempty"`
}

// LoanDetails 贷款详情
// Rent 与 Land 互斥,恰好一个子集被填充,贷款类型由此推断
type LoanDetails struct {
	LoanAmount     *decimal.Decimal `json:"loan_amount,omitempty"`
	DurationMonths int              `json:"duration_months,omitempty"`
	Purpose        string           `json:"purpose,omitempty"`
	Rent           *RentDetails     `json:"rent,omitempty"`
	Land           *LandDetails     `json:"land,omitempty"`
}

// LoanType 由互斥字段子集推断贷款类型,两者都未填时返回空串
func (d *LoanDetails) LoanType() types.LoanType {
	if d == nil {
		return ""
	}
	if d.Rent != nil && d.Land == nil {
		return types.LoanTypeRent
	}
	if d.Land != nil && d.Rent == nil {
		return types.LoanTypeLand
	}
	return ""
}
