package warehouse

import "salesdash/internal/source"

// Logical table names.
const (
	TableFactSale     = "fact_sale"
	TableDimCustomer  = "dim_customer"
	TableDimCity      = "dim_city"
	TableDimEmployee  = "dim_employee"
	TableDimStockItem = "dim_stock_item"
	TableDimDate      = "dim_date"
)

// Schema returns the specs of the six warehouse tables with their normalized
// column names and target kinds.
//
// Note on DimCustomer: the historical CSV export shipped as "DimCostumer.csv"
// (sic). The corrected spelling is primary; the misspelled name stays as a
// fallback so old data directories keep loading.
func Schema() []source.TableSpec {
	return []source.TableSpec{
		{
			Name:     TableFactSale,
			File:     "FactSale.csv",
			Relation: "Fact.Sale",
			Columns: []source.ColumnSpec{
				{Name: "customer_key", Source: "Customer Key", Kind: source.KindInt},
				{Name: "city_key", Source: "City Key", Kind: source.KindInt},
				{Name: "salesperson_key", Source: "Salesperson Key", Kind: source.KindInt},
				{Name: "stock_item_key", Source: "Stock Item Key", Kind: source.KindInt},
				{Name: "invoice_date_key", Source: "Invoice Date Key", Kind: source.KindString},
				{Name: "unit_price", Source: "Unit Price", Kind: source.KindFloat},
				{Name: "tax_amount", Source: "Tax Amount", Kind: source.KindFloat},
			},
		},
		{
			Name:     TableDimCustomer,
			File:     "DimCustomer.csv",
			AltFiles: []string{"DimCostumer.csv"},
			Relation: "Dimension.Customer",
			Columns: []source.ColumnSpec{
				{Name: "customer_key", Source: "Customer Key", Kind: source.KindInt},
				{Name: "customer", Source: "Customer", Kind: source.KindString},
			},
		},
		{
			Name:     TableDimCity,
			File:     "DimCity.csv",
			Relation: "Dimension.City",
			Columns: []source.ColumnSpec{
				{Name: "city_key", Source: "City Key", Kind: source.KindInt},
				{Name: "city", Source: "City", Kind: source.KindString},
				{Name: "state_province", Source: "State Province", Kind: source.KindString},
			},
		},
		{
			Name:     TableDimEmployee,
			File:     "DimEmployee.csv",
			Relation: "Dimension.Employee",
			Columns: []source.ColumnSpec{
				{Name: "employee_key", Source: "Employee Key", Kind: source.KindInt},
				{Name: "employee", Source: "Employee", Kind: source.KindString},
			},
		},
		{
			Name:     TableDimStockItem,
			File:     "DimStockItem.csv",
			Relation: "Dimension.Stock Item",
			Columns: []source.ColumnSpec{
				{Name: "stock_item_key", Source: "Stock Item Key", Kind: source.KindInt},
				{Name: "stock_item", Source: "Stock Item", Kind: source.KindString},
				{Name: "color", Source: "Color", Kind: source.KindString},
				{Name: "size", Source: "Size", Kind: source.KindString},
				{Name: "brand", Source: "Brand", Kind: source.KindString},
			},
		},
		{
			Name:     TableDimDate,
			File:     "DimDate.csv",
			Relation: "Dimension.Date",
			Columns: []source.ColumnSpec{
				{Name: "date", Source: "Date", Kind: source.KindString},
				{Name: "calendar_year", Source: "Calendar Year", Kind: source.KindFloat},
			},
		},
	}
}

// joinStep is one left join in the fixed integration sequence.
type joinStep struct {
	table    string
	leftKey  string
	rightKey string
	suffix   string
}

// joinSequence is the fixed order of left joins anchored on the fact table.
// Order matters only for suffix collision resolution, not for the row set.
var joinSequence = []joinStep{
	{table: TableDimCustomer, leftKey: "customer_key", rightKey: "customer_key", suffix: "_customer"},
	{table: TableDimCity, leftKey: "city_key", rightKey: "city_key", suffix: "_city"},
	{table: TableDimEmployee, leftKey: "salesperson_key", rightKey: "employee_key", suffix: "_employee"},
	{table: TableDimStockItem, leftKey: "stock_item_key", rightKey: "stock_item_key", suffix: "_stock"},
	{table: TableDimDate, leftKey: "invoice_date_key", rightKey: "date", suffix: "_date"},
}
