// seed_items genera un script SQL para poblar el catálogo de ítems a partir de un CSV
// exportado de la hoja de precios (columnas: name, price, group, description).
//
// Uso: go run ./cmd/seed_items [-charset windows-1256] [ruta/catalogo.csv]
// Por defecto lee catalogo.csv en UTF-8. Escribe: migrations/002_seed_items.sql
//
// El id de cada ítem se deriva del nombre: volver a ejecutar el script actualiza en lugar de duplicar.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type seedItem struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Group       string
	Description string
}

func main() {
	charset := flag.String("charset", "utf-8", "codificación del CSV: utf-8 | windows-1256 | iso-8859-1")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	in, err := decodeReader(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Charset: %v\n", err)
		os.Exit(1)
	}
	items, skipped, err := parseItems(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "migrations", "002_seed_items.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, items); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d ítems, %d filas descartadas\n", outPath, len(items), skipped)
}

// decodeReader envuelve r con el decodificador del charset pedido.
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1256", "cp1256":
		return transform.NewReader(r, charmap.Windows1256.NewDecoder()), nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	}
	return nil, fmt.Errorf("charset no soportado: %s", charset)
}

// parseItems lee name, price, group, description. La primera fila es cabecera si su precio no es numérico.
// Filas sin nombre o con precio inválido o negativo se descartan; un nombre repetido gana la última fila.
func parseItems(r io.Reader) ([]seedItem, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		items   []seedItem
		index   = map[string]int{}
		skipped int
		first   = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		header := first
		first = false
		if len(rec) < 2 {
			skipped++
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		price, perr := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[1]), ",", ""))
		if perr != nil && header {
			continue
		}
		if name == "" || perr != nil || price.IsNegative() {
			skipped++
			continue
		}
		it := seedItem{
			ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(name))).String(),
			Name:  name,
			Price: price,
		}
		if len(rec) > 2 {
			it.Group = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 {
			it.Description = strings.TrimSpace(rec[3])
		}
		if i, ok := index[it.ID]; ok {
			items[i] = it
			continue
		}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	return items, skipped, nil
}

func writeSQL(w io.Writer, items []seedItem) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de ítems\n")
	b.WriteString("-- Generado por cmd/seed_items\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "INSERT INTO items (id, name, price, description, group_label)\n")
		fmt.Fprintf(&b, "VALUES ('%s', '%s', %s, '%s', '%s')\n",
			it.ID, escapeSQL(it.Name), it.Price.String(), escapeSQL(it.Description), escapeSQL(it.Group))
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,\n")
		b.WriteString("  description = EXCLUDED.description, group_label = EXCLUDED.group_label, updated_at = now();\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
