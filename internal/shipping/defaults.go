package shipping

// defaultRates is the built-in fee schedule for the 58 wilayas. Rows stored in
// shipping_rates override it region by region.
var defaultRates = []Rate{
	{Region: "ADRAR", Number: 1, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "CHLEF", Number: 2, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "LAGHOUAT", Number: 3, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "OUM EL BOUAGHI", Number: 4, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "BATNA", Number: 5, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "BEJAIA", Number: 6, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "BISKRA", Number: 7, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "BECHAR", Number: 8, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "BLIDA", Number: 9, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "BOUIRA", Number: 10, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "TAMANRASSET", Number: 11, HomeFee: fee(1200), OfficeFee: fee(900)},
	{Region: "TEBESSA", Number: 12, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TLEMCEN", Number: 13, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TIARET", Number: 14, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TIZI OUZOU", Number: 15, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "ALGER", Number: 16, HomeFee: fee(300), OfficeFee: fee(200)},
	{Region: "DJELFA", Number: 17, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "JIJEL", Number: 18, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "SETIF", Number: 19, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "SAIDA", Number: 20, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "SKIKDA", Number: 21, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "SIDI BEL ABBES", Number: 22, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "ANNABA", Number: 23, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "GUELMA", Number: 24, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "CONSTANTINE", Number: 25, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "MEDEA", Number: 26, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "MOSTAGANEM", Number: 27, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "M'SILA", Number: 28, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "MASCARA", Number: 29, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "OUARGLA", Number: 30, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "ORAN", Number: 31, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "EL BAYADH", Number: 32, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "ILLIZI", Number: 33, HomeFee: fee(1200), OfficeFee: fee(900)},
	{Region: "BORDJ BOU ARRERIDJ", Number: 34, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "BOUMERDES", Number: 35, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "EL TARF", Number: 36, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TINDOUF", Number: 37, HomeFee: fee(1200), OfficeFee: fee(900)},
	{Region: "TISSEMSILT", Number: 38, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "EL OUED", Number: 39, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "KHENCHELA", Number: 40, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "SOUK AHRAS", Number: 41, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TIPAZA", Number: 42, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "MILA", Number: 43, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "AIN DEFLA", Number: 44, HomeFee: fee(400), OfficeFee: fee(300)},
	{Region: "NAAMA", Number: 45, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "AIN TEMOUCHENT", Number: 46, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "GHARDAIA", Number: 47, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "RELIZANE", Number: 48, HomeFee: fee(500), OfficeFee: fee(350)},
	{Region: "TIMIMOUN", Number: 49, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "BORDJ BADJI MOKHTAR", Number: 50, HomeFee: fee(1200), OfficeFee: nil},
	{Region: "OULED DJELLAL", Number: 51, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "BENI ABBES", Number: 52, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "IN SALAH", Number: 53, HomeFee: fee(1200), OfficeFee: fee(900)},
	{Region: "IN GUEZZAM", Number: 54, HomeFee: fee(1200), OfficeFee: nil},
	{Region: "TOUGGOURT", Number: 55, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "DJANET", Number: 56, HomeFee: fee(1200), OfficeFee: nil},
	{Region: "EL M'GHAIR", Number: 57, HomeFee: fee(700), OfficeFee: fee(500)},
	{Region: "EL MENIAA", Number: 58, HomeFee: fee(700), OfficeFee: fee(500)},
}

func fee(v int64) *int64 { return &v }

// DefaultTable returns the built-in rate table.
func DefaultTable() *RateTable {
	return NewRateTable(defaultRates)
}
