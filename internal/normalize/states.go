package normalize

// Canonical state names keyed by country, each with its accepted aliases.
// Canonical names are matched by themselves as well.

var usaStates = map[string][]string{
	"Alabama": {"AL"}, "Alaska": {"AK"}, "Arizona": {"AZ"}, "Arkansas": {"AR"},
	"California": {"CA"}, "Colorado": {"CO"}, "Connecticut": {"CT"}, "Delaware": {"DE"},
	"District of Columbia": {"DC", "D.C", "Washington DC", "Washington, D.C"},
	"Florida": {"FL"}, "Georgia": {"GA"}, "Hawaii": {"HI"}, "Idaho": {"ID"},
	"Illinois": {"IL"}, "Indiana": {"IN"}, "Iowa": {"IA"}, "Kansas": {"KS"},
	"Kentucky": {"KY"}, "Louisiana": {"LA"}, "Maine": {"ME"}, "Maryland": {"MD"},
	"Massachusetts": {"MA"}, "Michigan": {"MI"}, "Minnesota": {"MN"}, "Mississippi": {"MS"},
	"Missouri": {"MO"}, "Montana": {"MT"}, "Nebraska": {"NE"}, "Nevada": {"NV"},
	"New Hampshire": {"NH"}, "New Jersey": {"NJ"}, "New Mexico": {"NM"}, "New York": {"NY"},
	"North Carolina": {"NC"}, "North Dakota": {"ND"}, "Ohio": {"OH"}, "Oklahoma": {"OK"},
	"Oregon": {"OR"}, "Pennsylvania": {"PA"}, "Rhode Island": {"RI"}, "South Carolina": {"SC"},
	"South Dakota": {"SD"}, "Tennessee": {"TN"}, "Texas": {"TX"}, "Utah": {"UT"},
	"Vermont": {"VT"}, "Virginia": {"VA"}, "Washington": {"WA"}, "West Virginia": {"WV"},
	"Wisconsin": {"WI"}, "Wyoming": {"WY"},
	"Puerto Rico": {"PR"}, "Guam": {"GU"}, "U.S. Virgin Islands": {"VI", "Virgin Islands"},
	"American Samoa": {"AS"}, "Northern Mariana Islands": {"MP"},
}

var canStates = map[string][]string{
	"Alberta":                   {"AB", "Alta"},
	"British Columbia":          {"BC", "B.C"},
	"Manitoba":                  {"MB", "Man"},
	"New Brunswick":             {"NB"},
	"Newfoundland and Labrador": {"NL", "NF", "Newfoundland"},
	"Nova Scotia":               {"NS"},
	"Ontario":                   {"ON", "Ont"},
	"Prince Edward Island":      {"PE", "PEI"},
	"Quebec":                    {"QC", "PQ", "Québec"},
	"Saskatchewan":              {"SK", "Sask"},
	"Northwest Territories":     {"NT", "NWT"},
	"Nunavut":                   {"NU"},
	"Yukon":                     {"YT", "Yukon Territory"},
}

var indStates = map[string][]string{
	"Andhra Pradesh":                           {"AP"},
	"Arunachal Pradesh":                        {"AR"},
	"Assam":                                    {"AS"},
	"Bihar":                                    {"BR"},
	"Chhattisgarh":                             {"CG", "CT", "Chattisgarh"},
	"Goa":                                      {"GA"},
	"Gujarat":                                  {"GJ"},
	"Haryana":                                  {"HR"},
	"Himachal Pradesh":                         {"HP"},
	"Jharkhand":                                {"JH"},
	"Karnataka":                                {"KA"},
	"Kerala":                                   {"KL"},
	"Madhya Pradesh":                           {"MP"},
	"Maharashtra":                              {"MH"},
	"Manipur":                                  {"MN"},
	"Meghalaya":                                {"ML"},
	"Mizoram":                                  {"MZ"},
	"Nagaland":                                 {"NL"},
	"Odisha":                                   {"OD", "OR", "Orissa"},
	"Punjab":                                   {"PB"},
	"Rajasthan":                                {"RJ"},
	"Sikkim":                                   {"SK"},
	"Tamil Nadu":                               {"TN"},
	"Telangana":                                {"TG", "TS"},
	"Tripura":                                  {"TR"},
	"Uttar Pradesh":                            {"UP"},
	"Uttarakhand":                              {"UK", "UT", "Uttaranchal"},
	"West Bengal":                              {"WB"},
	"Delhi":                                    {"DL", "NCT of Delhi", "New Delhi", "National Capital Territory of Delhi"},
	"Jammu and Kashmir":                        {"JK", "J&K"},
	"Ladakh":                                   {"LA"},
	"Puducherry":                               {"PY", "Pondicherry"},
	"Chandigarh":                               {"CH"},
	"Andaman and Nicobar Islands":              {"AN"},
	"Dadra and Nagar Haveli and Daman and Diu": {"DN", "DD"},
	"Lakshadweep":                              {"LD"},
}

var chnStates = map[string][]string{
	"Anhui": {"安徽"}, "Beijing": {"北京"}, "Chongqing": {"重庆"}, "Fujian": {"福建"},
	"Gansu": {"甘肃"}, "Guangdong": {"广东"}, "Guangxi": {"广西", "Guangxi Zhuang"},
	"Guizhou": {"贵州"}, "Hainan": {"海南"}, "Hebei": {"河北"}, "Heilongjiang": {"黑龙江"},
	"Henan": {"河南"}, "Hubei": {"湖北"}, "Hunan": {"湖南"},
	"Inner Mongolia": {"内蒙古", "Nei Mongol"}, "Jiangsu": {"江苏"}, "Jiangxi": {"江西"},
	"Jilin": {"吉林"}, "Liaoning": {"辽宁"}, "Ningxia": {"宁夏", "Ningxia Hui"},
	"Qinghai": {"青海"}, "Shaanxi": {"陕西"}, "Shandong": {"山东"}, "Shanghai": {"上海"},
	"Shanxi": {"山西"}, "Sichuan": {"四川"}, "Tianjin": {"天津"}, "Tibet": {"西藏", "Xizang"},
	"Xinjiang": {"新疆", "Xinjiang Uyghur", "Xinjiang Uygur"}, "Yunnan": {"云南"},
	"Zhejiang": {"浙江"}, "Hong Kong": {"香港"}, "Macau": {"澳门", "Macao"},
}

func stateTables() map[string]map[string]string {
	return map[string]map[string]string{
		"USA": buildTable(usaStates),
		"CAN": buildTable(canStates),
		"IND": buildTable(indStates),
		"CHN": buildTable(chnStates),
	}
}

func buildTable(src map[string][]string) map[string]string {
	table := make(map[string]string, len(src)*2)
	for canonical, aliases := range src {
		table[stateKey(canonical)] = canonical
		for _, alias := range aliases {
			table[stateKey(alias)] = canonical
		}
	}
	return table
}
