package anonymize

// sectionHeaders lists common German and English résumé headings, lowercased.
// A first line matching one of these is never treated as a name.
func sectionHeaders() map[string]bool {
	headers := []string{
		"lebenslauf",
		"tabellarischer lebenslauf",
		"curriculum vitae",
		"cv",
		"resume",
		"résumé",
		"bewerbung",
		"profil",
		"kurzprofil",
		"persönliche daten",
		"persönliches",
		"kontakt",
		"kontaktdaten",
		"berufserfahrung",
		"berufliche erfahrung",
		"berufspraxis",
		"praktische erfahrung",
		"ausbildung",
		"schulbildung",
		"studium",
		"bildungsweg",
		"weiterbildung",
		"kenntnisse",
		"fähigkeiten",
		"qualifikationen",
		"sprachen",
		"sprachkenntnisse",
		"projekte",
		"zertifikate",
		"interessen",
		"hobbys",
		"profile",
		"summary",
		"professional summary",
		"about me",
		"contact",
		"personal information",
		"experience",
		"work experience",
		"professional experience",
		"employment history",
		"education",
		"skills",
		"technical skills",
		"languages",
		"projects",
		"certifications",
		"interests",
	}
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[h] = true
	}
	return set
}
