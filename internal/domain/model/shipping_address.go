package model

import "strings"

// 配送先住所（注文に埋め込む）
type ShippingAddress struct {
	//宛名
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	Email string `gorm:"type:varchar(255)" json:"email"`

	//番地など
	AddressLine1 string `gorm:"type:varchar(255);not null" json:"address_line1"`

	//建物名など
	AddressLine2 string `gorm:"type:varchar(255)" json:"address_line2"`

	City string `gorm:"type:varchar(255);not null" json:"city"`

	//都道府県・州
	State string `gorm:"type:varchar(100)" json:"state"`

	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`

	Country string `gorm:"type:varchar(100);not null" json:"country"`
}

// 必須項目で空のものを返す
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
