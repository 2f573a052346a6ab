package client

import (
	"net/http"

	"casetrack-backend/internal/ecourts/gateway"
)

var (
	opSearchByCNR = gateway.Operation{
		Name:    "search-by-cnr",
		Path:    "/cases/case_no_qry.php",
		Action:  "showRecords",
		Court:   true,
		Captcha: true,
	}
	opSearchByNumber = gateway.Operation{
		Name:    "search-by-number",
		Path:    "/cases/case_no_qry.php",
		Action:  "showRecords",
		Court:   true,
		Captcha: true,
	}
	opPrimeCaseTypeSearch = gateway.Operation{
		Name:   "prime-case-type-search",
		Path:   "/cases/s_casetype.php",
		Method: http.MethodGet,
	}
	opSearchByCaseType = gateway.Operation{
		Name:    "search-by-case-type",
		Path:    "/cases/s_casetype_qry.php",
		Action:  "showRecords",
		Court:   true,
		Captcha: true,
	}
	opSearchByActType = gateway.Operation{
		Name:    "search-by-act-type",
		Path:    "/cases/s_actwise_qry.php",
		Action:  "showRecords",
		Court:   true,
		Captcha: true,
	}
	opCaseHistory = gateway.Operation{
		Name:  "case-history",
		Path:  "/cases/o_civil_case_history.php",
		Court: true,
	}
	opCaseTypes = gateway.Operation{
		Name:   "case-types",
		Path:   "/cases/s_casetype_qry.php",
		Action: "fillCaseType",
		Court:  true,
	}
	opActTypes = gateway.Operation{
		Name:   "act-types",
		Path:   "/cases/s_actwise_qry.php",
		Action: "fillActType",
		Court:  true,
	}
	opHearingBusiness = gateway.Operation{
		Name:  "hearing-business",
		Path:  "/cases/s_show_business.php",
		Court: true,
	}
	opDownloadOrder = gateway.Operation{
		Name:   "download-order",
		Path:   "/cases/display_pdf.php",
		Method: http.MethodGet,
	}
)
