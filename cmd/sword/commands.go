package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/history"
	"github.com/ndlib/sword/mets"
	"github.com/ndlib/sword/outbox"
	"github.com/ndlib/sword/sword"
)

var (
	errUsage = errors.New("usage")

	// errDuplicateName means two files would have the same name in a package
	errDuplicateName = errors.New("duplicate file name")
)

// app holds everything a command needs.
type app struct {
	cfg     Config
	conn    *sword.Connection
	outbox  *outbox.Outbox
	history history.DB // may be nil
	out     io.Writer
	noop    bool
}

func newApp(cfg Config, out io.Writer) (*app, error) {
	s := parselocation(cfg.Outbox)
	if s == nil {
		return nil, fmt.Errorf("cannot use outbox location %q", cfg.Outbox)
	}
	h, err := openHistory(cfg.History)
	if err != nil {
		return nil, err
	}
	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "sword: ", log.LstdFlags)
	}
	conn := sword.New(cfg.Service,
		sword.Credentials{Username: cfg.Username, Password: cfg.Password},
		sword.WithTimeout(cfg.Timeout.Duration),
		sword.WithEncoding(cfg.Encoding),
		sword.WithLogger(logger),
	)
	return &app{
		cfg:     cfg,
		conn:    conn,
		outbox:  outbox.New(s),
		history: h,
		out:     out,
		noop:    *noop,
	}, nil
}

func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "collections":
		return a.doCollections()
	case "package":
		if len(args) < 4 {
			return errUsage
		}
		return a.doPackage(args[0], args[1], args[2], args[3], args[4:])
	case "deposit":
		if len(args) != 2 {
			return errUsage
		}
		return a.doDeposit(args[0], args[1])
	case "send":
		if len(args) < 5 {
			return errUsage
		}
		return a.doSend(args[0], args[1], args[2], args[3], args[4], args[5:])
	case "outbox":
		return a.doOutbox()
	case "history":
		n := 20
		if len(args) > 0 {
			var err error
			n, err = strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return errUsage
			}
		}
		return a.doHistory(n)
	}
	return errUsage
}

func (a *app) doCollections() error {
	cols, err := a.conn.Collections()
	for _, c := range cols {
		fmt.Fprintf(a.out, "%s\t%s\n", c.URL, c.Title)
	}
	if errors.Is(err, sword.ErrMalformedServiceDocument) {
		// what was found before the problem is still usable
		log.Println("Warning:", err)
		return nil
	}
	return err
}

func (a *app) doPackage(title, summary, language, keywords string, files []string) error {
	md := record(title, summary, language, keywords)
	p, err := a.build(md, files)
	if err != nil {
		return err
	}
	id, err := a.outbox.Save(p, md)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *app) doDeposit(collectionURL, id string) error {
	p, info, err := a.outbox.Load(id)
	if err != nil {
		return err
	}
	err = a.deposit(collectionURL, id, p)
	if err == nil && !a.noop {
		// a package is only ever sent once
		err = a.outbox.Delete(id)
	}
	if *verbose {
		log.Printf("%s %q %d bytes", id, info.Record.Title, info.Size)
	}
	return err
}

func (a *app) doSend(collectionURL, title, summary, language, keywords string, files []string) error {
	p, err := a.build(record(title, summary, language, keywords), files)
	if err != nil {
		return err
	}
	return a.deposit(collectionURL, "", p)
}

func (a *app) doOutbox() error {
	ids, err := a.outbox.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
	for _, id := range ids {
		info, err := a.outbox.Info(id)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\n", id, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			id, info.Created.Format(time.RFC3339), info.Size, info.Record.Title)
	}
	return w.Flush()
}

func (a *app) doHistory(n int) error {
	if a.history == nil {
		return errors.New("no history database is configured")
	}
	entries, err := a.history.Recent(n)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
	for _, e := range entries {
		result := e.Location
		if !e.Succeeded() {
			result = e.Notes
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			e.When.Format(time.RFC3339), e.Status, e.Package, e.Collection, result)
	}
	return w.Flush()
}

// build opens the named files and assembles them into a package. Each file
// is stored under its base name, so two files with the same base name are an
// error.
func (a *app) build(md mets.Record, files []string) (*bundle.Package, error) {
	fs := bundle.NewFileSet()
	for _, fname := range files {
		name := filepath.Base(fname)
		if fs.Reader(name) != nil {
			return nil, fmt.Errorf("%s: %w %s", fname, errDuplicateName, name)
		}
		f, err := os.Open(fname)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fs.Add(name, f)
	}
	return a.conn.BuildPackage(md, fs)
}

// deposit sends p to the collection and records the attempt.
func (a *app) deposit(collectionURL, id string, p *bundle.Package) error {
	var opts []sword.DepositOption
	if a.cfg.OnBehalfOf != "" {
		opts = append(opts, sword.WithOnBehalfOf(a.cfg.OnBehalfOf))
	}
	if a.noop {
		opts = append(opts, sword.WithNoOp())
	}
	if *verbose {
		opts = append(opts, sword.WithVerbose())
	}
	if id != "" {
		opts = append(opts, sword.WithFilename(id+".zip"))
	}
	col := sword.Collection{URL: collectionURL}
	receipt, err := a.conn.Deposit(col, p, opts...)

	entry := history.Entry{
		Package:    id,
		Collection: collectionURL,
		When:       time.Now(),
	}
	var rejected *sword.RejectedError
	switch {
	case err == nil:
		entry.Status = receipt.StatusCode
		entry.Location = receipt.Location
		fmt.Fprintln(a.out, receipt.Location)
	case errors.As(err, &rejected):
		entry.Status = rejected.StatusCode
		entry.Notes = strings.TrimSpace(string(rejected.Body))
	default:
		entry.Notes = err.Error()
	}
	if a.history != nil {
		if herr := a.history.Record(entry); herr != nil {
			log.Println("Recording history:", herr)
		}
	}
	return err
}

func record(title, summary, language, keywords string) mets.Record {
	return mets.Record{
		Title:    title,
		Summary:  summary,
		Language: language,
		Keywords: strings.Split(keywords, ","),
	}
}
