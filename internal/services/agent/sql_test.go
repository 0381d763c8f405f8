package agent

import "testing"

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "Plain select",
			text: "SELECT COUNT(*) FROM customers;",
			want: "SELECT COUNT(*) FROM customers;",
		},
		{
			name: "Embedded in prose",
			text: "The agent ran select c_name from customers where active = true and found 14 rows",
			want: "select c_name from customers where active = true and found 14 rows",
		},
		{
			name: "CTE",
			text: "WITH recent AS (SELECT * FROM orders) SELECT COUNT(*) FROM recent;",
			want: "WITH recent AS (SELECT * FROM orders) SELECT COUNT(*) FROM recent;",
		},
		{
			name: "No SQL",
			text: "There are 14 active customers.",
			want: "",
		},
		{
			name: "Empty",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSQL(tt.text); got != tt.want {
				t.Errorf("ExtractSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}
