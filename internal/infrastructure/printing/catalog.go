package printing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// labels printed on documents, English keys with translations
var labels = map[string]map[language.Tag]string{
	"Quote":                {language.Spanish: "Presupuesto", language.Catalan: "Pressupost"},
	"Invoice":              {language.Spanish: "Factura", language.Catalan: "Factura"},
	"Number":               {language.Spanish: "Número", language.Catalan: "Número"},
	"Date":                 {language.Spanish: "Fecha", language.Catalan: "Data"},
	"Valid until":          {language.Spanish: "Válido hasta", language.Catalan: "Vàlid fins"},
	"Due date":             {language.Spanish: "Vencimiento", language.Catalan: "Venciment"},
	"Bill to":              {language.Spanish: "Cliente", language.Catalan: "Client"},
	"Description":          {language.Spanish: "Concepto", language.Catalan: "Concepte"},
	"Quantity":             {language.Spanish: "Cantidad", language.Catalan: "Quantitat"},
	"Unit price":           {language.Spanish: "Precio unitario", language.Catalan: "Preu unitari"},
	"Taxes":                {language.Spanish: "Impuestos", language.Catalan: "Impostos"},
	"Amount":               {language.Spanish: "Importe", language.Catalan: "Import"},
	"Subtotal":             {language.Spanish: "Base imponible", language.Catalan: "Base imposable"},
	"Discount":             {language.Spanish: "Descuento", language.Catalan: "Descompte"},
	"Retention":            {language.Spanish: "Retención", language.Catalan: "Retenció"},
	"Total":                {language.Spanish: "Total", language.Catalan: "Total"},
	"Notes":                {language.Spanish: "Observaciones", language.Catalan: "Observacions"},
	"Tax ID":               {language.Spanish: "NIF", language.Catalan: "NIF"},
	"Page":                 {language.Spanish: "Página", language.Catalan: "Pàgina"},
	"of":                   {language.Spanish: "de", language.Catalan: "de"},
	"Status":               {language.Spanish: "Estado", language.Catalan: "Estat"},
	"Issued by":            {language.Spanish: "Emitido por", language.Catalan: "Emès per"},
	"Please find attached": {language.Spanish: "Adjuntamos", language.Catalan: "Adjuntem"},
}

func init() {
	for key, translations := range labels {
		for tag, text := range translations {
			_ = message.SetString(tag, key, text)
		}
	}
}
