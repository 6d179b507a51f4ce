// Command noid is the thin CLI front end: it parses argv with flaggy, opens
// or creates a database under the configured data directory, and dispatches
// to one session operation per invocation.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/integrii/flaggy"

	"github.com/cdl-noid/noid/pkg/binding"
	"github.com/cdl-noid/noid/pkg/config"
	"github.com/cdl-noid/noid/pkg/dbcreate"
	"github.com/cdl-noid/noid/pkg/dbinfo"
	"github.com/cdl-noid/noid/pkg/session"
	"github.com/cdl-noid/noid/pkg/store"
)

const defaultVersion = "unversioned"

var (
	version = defaultVersion

	settingsFile  string
	dataDir       string
	dbName        string
	backendFlag   string
	debuggingFlag bool
	contactFlag   string
)

func main() {
	flaggy.SetName("noid")
	flaggy.SetDescription("Nice Opaque Identifier minting and tracking")
	flaggy.DefaultParser.AdditionalHelpPrepend = "one subcommand, one session: open/create the named database, run the operation, close"
	flaggy.SetVersion(version)

	flaggy.String(&settingsFile, "c", "config", "path to a settings YAML file")
	flaggy.String(&dataDir, "f", "datadir", "override the data directory databases live under")
	flaggy.String(&dbName, "t", "db", "database name (subdirectory of the data directory)")
	flaggy.String(&backendFlag, "g", "backend", "storage backend for a newly created database: bolt, sqlite, xml, memory")
	flaggy.Bool(&debuggingFlag, "d", "debug", "enable debug logging")
	flaggy.String(&contactFlag, "", "contact", "contact string recorded on circulation records")

	dbcreateCmd, dbcreateOpts := newDBCreateCommand()
	mintCmd, mintCount := newMintCommand()
	pregenCmd, pregenCount := newPregenCommand()
	holdCmd, holdArgs := newHoldCommand()
	queueCmd, queueArgs := newQueueCommand()
	bindCmd, bindArgs := newBindCommand()
	fetchCmd, fetchArgs := newFetchCommand()
	validateCmd, validateArgs := newValidateCommand()
	dbinfoCmd, dbinfoArgs := newDBInfoCommand()
	dbimportCmd, dbimportArgs := newDBImportCommand()

	flaggy.AttachSubcommand(dbcreateCmd, 1)
	flaggy.AttachSubcommand(mintCmd, 1)
	flaggy.AttachSubcommand(pregenCmd, 1)
	flaggy.AttachSubcommand(holdCmd, 1)
	flaggy.AttachSubcommand(queueCmd, 1)
	flaggy.AttachSubcommand(bindCmd, 1)
	flaggy.AttachSubcommand(fetchCmd, 1)
	flaggy.AttachSubcommand(validateCmd, 1)
	flaggy.AttachSubcommand(dbinfoCmd, 1)
	flaggy.AttachSubcommand(dbimportCmd, 1)

	flaggy.Parse()

	settings, err := config.Load(settingsFile)
	if err != nil {
		log.Fatal(err.Error())
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	if backendFlag != "" {
		settings.DefaultBackend = config.Backend(backendFlag)
	}
	if debuggingFlag {
		settings.Debug = true
	}
	if contactFlag != "" {
		settings.Contact = contactFlag
	}
	if err := settings.Validate(); err != nil {
		log.Fatal(err.Error())
	}
	if dbName == "" {
		dbName = "default"
	}

	now := time.Now()

	switch {
	case dbcreateCmd.Used:
		runDBCreate(settings, dbcreateOpts, now)
	case mintCmd.Used:
		runMint(settings, *mintCount, now)
	case pregenCmd.Used:
		runPregen(settings, *pregenCount, now)
	case holdCmd.Used:
		runHold(settings, holdArgs, now)
	case queueCmd.Used:
		runQueue(settings, queueArgs, now)
	case bindCmd.Used:
		runBind(settings, bindArgs, now)
	case fetchCmd.Used:
		runFetch(settings, fetchArgs)
	case validateCmd.Used:
		runValidate(settings, validateArgs)
	case dbinfoCmd.Used:
		runDBInfo(settings, dbinfoArgs)
	case dbimportCmd.Used:
		runDBImport(settings, dbimportArgs)
	default:
		flaggy.ShowHelpAndExit("")
	}
}

type dbcreateArgs struct {
	term     string
	naan     string
	naa      string
	subnaa   string
	template string
}

func newDBCreateCommand() (*flaggy.Subcommand, *dbcreateArgs) {
	cmd := flaggy.NewSubcommand("dbcreate")
	cmd.Description = "materialize a fresh database's admin records"
	args := &dbcreateArgs{term: "-"}
	cmd.String(&args.template, "", "template", "mask template, e.g. \"r.zd\"; empty for a bind-only minter")
	cmd.String(&args.term, "", "term", "long, medium, short, or -")
	cmd.String(&args.naan, "", "naan", "5-digit name assigning authority number")
	cmd.String(&args.naa, "", "naa", "name assigning authority")
	cmd.String(&args.subnaa, "", "subnaa", "sub name assigning authority")
	return cmd, args
}

func runDBCreate(settings config.Settings, args *dbcreateArgs, now time.Time) {
	contact := settings.Contact
	if contact == "" {
		contact = "noid"
	}
	opts := dbcreate.Options{
		Contact:  contact,
		Template: args.template,
		Term:     dbcreate.Term(args.term),
		NAAN:     args.naan,
		NAA:      args.naa,
		SubNAA:   args.subnaa,
		Now:      now,
	}
	report, err := session.Create(settings, dbName, opts)
	fatalOn(err)
	fmt.Print(report)
}

func newMintCommand() (*flaggy.Subcommand, *int) {
	cmd := flaggy.NewSubcommand("mint")
	cmd.Description = "mint one or more identifiers"
	count := 1
	cmd.Int(&count, "n", "count", "number of identifiers to mint")
	return cmd, &count
}

func runMint(settings config.Settings, count int, now time.Time) {
	sess := open(settings, store.ModeReadWrite)
	defer closeSession(sess)
	ids, err := sess.MintMultiple(count, now)
	for _, id := range ids {
		fmt.Println(id)
	}
	fatalOn(err)
}

func newPregenCommand() (*flaggy.Subcommand, *int) {
	cmd := flaggy.NewSubcommand("pregen")
	cmd.Description = "fill the pre-generation pool"
	count := 1
	cmd.Int(&count, "n", "count", "number of identifiers to pregenerate")
	return cmd, &count
}

func runPregen(settings config.Settings, count int, now time.Time) {
	sess := open(settings, store.ModeReadWrite)
	defer closeSession(sess)
	n, err := sess.Pregenerate(count, now)
	fatalOn(err)
	fmt.Printf("pregenerated %d identifiers\n", n)
}

type holdArgs struct {
	action string
	ids    []string
}

func newHoldCommand() (*flaggy.Subcommand, *holdArgs) {
	cmd := flaggy.NewSubcommand("hold")
	cmd.Description = "hold set|release <id>..."
	args := &holdArgs{}
	cmd.AddPositionalValue(&args.action, "action", 1, true, "set or release")
	cmd.StringSlice(&args.ids, "", "id", "identifier(s) to hold or release")
	return cmd, args
}

func runHold(settings config.Settings, args *holdArgs, now time.Time) {
	sess := open(settings, store.ModeReadWrite)
	defer closeSession(sess)
	for _, id := range args.ids {
		var err error
		switch args.action {
		case "set":
			err = sess.HoldSet(id)
		case "release":
			err = sess.HoldRelease(id)
		default:
			log.Fatalf("hold: unknown action %q, want set or release", args.action)
		}
		fatalOn(err)
	}
}

type queueArgs struct {
	when string
	ids  []string
}

func newQueueCommand() (*flaggy.Subcommand, *queueArgs) {
	cmd := flaggy.NewSubcommand("queue")
	cmd.Description = "queue now|first|lvf|delete|<N>s|<N>d <id>..."
	args := &queueArgs{}
	cmd.AddPositionalValue(&args.when, "when", 1, true, "now, first, lvf, delete, <N>s, or <N>d")
	cmd.StringSlice(&args.ids, "", "id", "identifier(s) to queue or dequeue")
	return cmd, args
}

func runQueue(settings config.Settings, args *queueArgs, now time.Time) {
	sess := open(settings, store.ModeReadWrite)
	defer closeSession(sess)
	fatalOn(sess.Enqueue(args.ids, args.when, now))
}

type bindArgs struct {
	how   string
	id    string
	elem  string
	value string
}

func newBindCommand() (*flaggy.Subcommand, *bindArgs) {
	cmd := flaggy.NewSubcommand("bind")
	cmd.Description = "bind <how> <id> <element> [value]"
	args := &bindArgs{}
	cmd.AddPositionalValue(&args.how, "how", 1, true, "set, new, replace, append, prepend, delete, or mint")
	cmd.AddPositionalValue(&args.id, "id", 2, true, "identifier, or \"new\" when how=mint")
	cmd.AddPositionalValue(&args.elem, "element", 3, true, "element name")
	cmd.AddPositionalValue(&args.value, "value", 4, false, "element value")
	return cmd, args
}

func runBind(settings config.Settings, args *bindArgs, now time.Time) {
	sess := open(settings, store.ModeReadWrite)
	defer closeSession(sess)
	entry := binding.Entry{How: binding.How(args.how), ID: args.id, Elem: args.elem, Value: args.value}
	value, err := sess.Bind(entry, now)
	fatalOn(err)
	fmt.Println(value)
}

type fetchArgs struct {
	id   string
	elem string
}

func newFetchCommand() (*flaggy.Subcommand, *fetchArgs) {
	cmd := flaggy.NewSubcommand("fetch")
	cmd.Description = "fetch <id> [element]"
	args := &fetchArgs{}
	cmd.AddPositionalValue(&args.id, "id", 1, true, "identifier")
	cmd.AddPositionalValue(&args.elem, "element", 2, false, "element name; omit to dump every bound element")
	return cmd, args
}

func runFetch(settings config.Settings, args *fetchArgs) {
	sess := open(settings, store.ModeReadOnly)
	defer closeSession(sess)
	results, err := sess.Fetch(args.id, args.elem)
	fatalOn(err)
	for _, r := range results {
		if !r.Found {
			continue
		}
		fmt.Printf("%s: %s\n", r.Elem, r.Value)
	}
}

type validateArgs struct {
	template string
	ids      []string
}

func newValidateCommand() (*flaggy.Subcommand, *validateArgs) {
	cmd := flaggy.NewSubcommand("validate")
	cmd.Description = "validate <template> <id>..."
	args := &validateArgs{}
	cmd.AddPositionalValue(&args.template, "template", 1, true, "mask template")
	cmd.StringSlice(&args.ids, "", "id", "identifier(s) to validate")
	return cmd, args
}

func runValidate(settings config.Settings, args *validateArgs) {
	for _, id := range args.ids {
		err := dbinfo.ValidateAgainstTemplate(args.template, id)
		if err != nil {
			fmt.Printf("%s: invalid: %s\n", id, err)
			continue
		}
		fmt.Printf("%s: valid\n", id)
	}
}

type dbinfoArgs struct {
	verbosity string
}

func newDBInfoCommand() (*flaggy.Subcommand, *dbinfoArgs) {
	cmd := flaggy.NewSubcommand("dbinfo")
	cmd.Description = "report a database's admin state: brief, full, or dump"
	args := &dbinfoArgs{verbosity: "brief"}
	cmd.AddPositionalValue(&args.verbosity, "verbosity", 1, false, "brief, full, or dump")
	return cmd, args
}

func runDBInfo(settings config.Settings, args *dbinfoArgs) {
	sess := open(settings, store.ModeReadOnly)
	defer closeSession(sess)
	level, err := dbinfo.ParseVerbosity(args.verbosity)
	fatalOn(err)
	report, err := dbinfo.Report(sess.Store, sess.Cache, level)
	fatalOn(err)
	fmt.Print(report)
}

type dbimportArgs struct {
	sourceDB      string
	sourceBackend string
}

func newDBImportCommand() (*flaggy.Subcommand, *dbimportArgs) {
	cmd := flaggy.NewSubcommand("dbimport")
	cmd.Description = "replace this database's contents with another database's"
	args := &dbimportArgs{}
	cmd.AddPositionalValue(&args.sourceDB, "source", 1, true, "source database name")
	cmd.String(&args.sourceBackend, "", "source-backend", "source database's backend: bolt, sqlite, xml, memory")
	return cmd, args
}

func runDBImport(settings config.Settings, args *dbimportArgs) {
	srcSettings := settings
	if args.sourceBackend != "" {
		srcSettings.DefaultBackend = config.Backend(args.sourceBackend)
	}
	srcSess, err := session.Open(srcSettings, args.sourceDB, store.ModeReadOnly, settings.Contact)
	fatalOn(err)
	defer closeSession(srcSess)

	dstSess := open(settings, store.ModeReadWrite)
	defer closeSession(dstSess)

	fatalOn(dstSess.Store.Import(srcSess.Store))
}

func open(settings config.Settings, mode store.Mode) *session.Session {
	contact := settings.Contact
	if contact == "" {
		contact = "noid"
	}
	sess, err := session.Open(settings, dbName, mode, contact)
	fatalOn(err)
	return sess
}

func closeSession(sess *session.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		log.Println(err.Error())
	}
}

func fatalOn(err error) {
	if err == nil {
		return
	}
	log.Fatal(err.Error())
}
