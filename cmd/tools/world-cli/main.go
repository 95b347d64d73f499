package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/annel0/bedrock-server/internal/storage"
	"github.com/annel0/bedrock-server/internal/world/chunk"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "Каталог данных сервера")
		command = flag.String("cmd", "stats", "Команда: stats, show, delete")
		x       = flag.Int("x", 0, "Координата X колонки")
		z       = flag.Int("z", 0, "Координата Z колонки")
		air     = flag.Uint("air", 0, "Состояние воздуха")
	)
	flag.Parse()

	store, err := storage.NewBadgerStore(*dataDir)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}
	defer store.Close()

	switch *command {
	case "stats":
		n, err := store.Count()
		if err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
		fmt.Printf("📦 %s: сохранено колонок %d\n", store.Path(), n)

	case "show":
		data, ok, err := store.LoadChunk(int32(*x), int32(*z))
		if err != nil {
			log.Fatalf("❌ Show failed: %v", err)
		}
		if !ok {
			fmt.Printf("Колонка (%d, %d) не сохранена\n", *x, *z)
			return
		}
		c, err := chunk.DecodeChunk(data, uint32(*air))
		if err != nil {
			log.Fatalf("❌ Колонка (%d, %d) повреждена: %v", *x, *z, err)
		}
		describe(os.Stdout, *x, *z, len(data), c)

	case "delete":
		// Удалённая колонка будет сгенерирована заново при следующей загрузке
		if err := store.DeleteChunk(int32(*x), int32(*z)); err != nil {
			log.Fatalf("❌ Delete failed: %v", err)
		}
		fmt.Printf("🗑️ Колонка (%d, %d) удалена\n", *x, *z)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: stats, show, delete")
		os.Exit(1)
	}
}

// describe печатает секции колонки с размерами палитр
func describe(w io.Writer, x, z, size int, c *chunk.Chunk) {
	r := c.Range()
	fmt.Fprintf(w, "🧱 Колонка (%d, %d): %d байт, секции %d..%d\n", x, z, size, r.MinSection, r.MaxSection)

	for i, sc := range c.SubChunks() {
		if sc == nil || sc.IsEmpty() {
			continue
		}
		fmt.Fprintf(w, "  секция %3d (y=%d):", r.MinSection+i, (r.MinSection+i)<<4)
		for k, layer := range sc.Layers() {
			fmt.Fprintf(w, " слой %d: %d бит, палитра %v;", k, layer.BitWidth(), layer.Palette().States())
		}
		fmt.Fprintln(w)
	}

	if y, ok := c.HighestBlock(8, 8); ok {
		fmt.Fprintf(w, "  высота в центре: %d\n", y)
	}
}
